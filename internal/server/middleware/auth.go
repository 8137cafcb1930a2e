// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	// userIDKey is the context key for storing the authenticated user ID.
	userIDKey ContextKey = "userID"
	// roleKey is the context key for storing the authenticated user's role.
	roleKey ContextKey = "role"
)

// TokenValidator is an interface for validating JWT tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (Principal, error)
}

// Principal is the authenticated identity carried by a token.
type Principal interface {
	GetUserID() uuid.UUID
	GetRole() types.Role
}

// AuthMiddleware creates middleware that validates bearer tokens and adds the user ID
// and role to the request context.
func AuthMiddleware(jwtService TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.GetUserID())
			ctx = context.WithValue(ctx, roleKey, claims.GetRole())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose authenticated role is not one of roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := GetRole(r)
			if err != nil {
				unauthorized(w)
				return
			}
			if !slices.Contains(roles, role) {
				writeError(w, http.StatusForbidden, fmt.Sprintf("role %q is not allowed to perform this action", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Handle case-insensitive "Bearer" prefix
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	tokenString := strings.TrimSpace(parts[1])
	return tokenString, tokenString != ""
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, error) {
	userID, ok := r.Context().Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("user ID not found in request context")
	}
	return userID, nil
}

// GetRole extracts the authenticated role from the request context.
func GetRole(r *http.Request) (types.Role, error) {
	role, ok := r.Context().Value(roleKey).(types.Role)
	if !ok {
		return "", fmt.Errorf("role not found in request context")
	}
	return role, nil
}

// UserIDKey returns the context key for user ID (for testing purposes).
func UserIDKey() ContextKey {
	return userIDKey
}

// RoleKey returns the context key for the role (for testing purposes).
func RoleKey() ContextKey {
	return roleKey
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
