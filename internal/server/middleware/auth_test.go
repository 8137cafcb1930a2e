package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/types"
)

// testTokenValidator is a test implementation of TokenValidator for unit tests.
type testTokenValidator struct {
	validTokens map[string]*testClaims
}

func newTestTokenValidator() *testTokenValidator {
	return &testTokenValidator{validTokens: make(map[string]*testClaims)}
}

func (v *testTokenValidator) addValidToken(token string, userID uuid.UUID, role types.Role) {
	v.validTokens[token] = &testClaims{userID: userID, role: role}
}

func (v *testTokenValidator) ValidateToken(tokenString string) (Principal, error) {
	claims, ok := v.validTokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

type testClaims struct {
	userID uuid.UUID
	role   types.Role
}

func (c *testClaims) GetUserID() uuid.UUID { return c.userID }
func (c *testClaims) GetRole() types.Role  { return c.role }

func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserID(r)
		require.NoError(t, err)
		role, err := GetRole(r)
		require.NoError(t, err)
		_, _ = fmt.Fprintf(w, "%s %s", userID, role)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	validator := newTestTokenValidator()
	userID := uuid.New()
	validator.addValidToken("valid-token", userID, types.RoleProfessor)

	req := httptest.NewRequest(http.MethodGet, "/exams", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	AuthMiddleware(validator)(echoIdentity(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String()+" professor", w.Body.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	validator := newTestTokenValidator()
	validator.addValidToken("valid-token", uuid.New(), types.RoleStudent)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "no scheme", header: "valid-token"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "empty bearer", header: "Bearer "},
		{name: "extra parts", header: "Bearer valid-token extra"},
		{name: "unknown token", header: "Bearer forged-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/exams", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			AuthMiddleware(validator)(next).ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}
}

func TestAuthMiddleware_CaseInsensitiveScheme(t *testing.T) {
	validator := newTestTokenValidator()
	validator.addValidToken("valid-token", uuid.New(), types.RoleStudent)

	req := httptest.NewRequest(http.MethodGet, "/exams", nil)
	req.Header.Set("Authorization", "bearer valid-token")
	w := httptest.NewRecorder()
	AuthMiddleware(validator)(echoIdentity(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := RequireRole(types.RoleProfessor, types.RoleAdmin)(ok)

	tests := []struct {
		role types.Role
		want int
	}{
		{types.RoleProfessor, http.StatusNoContent},
		{types.RoleAdmin, http.StatusNoContent},
		{types.RoleStudent, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/exams", nil)
			req = req.WithContext(context.WithValue(req.Context(), RoleKey(), tt.role))
			w := httptest.NewRecorder()
			guard.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole_WithoutAuthentication(t *testing.T) {
	guard := RequireRole(types.RoleAdmin)(http.NotFoundHandler())

	w := httptest.NewRecorder()
	guard.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/exams", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserID(t *testing.T) {
	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := GetUserID(req)
	assert.Error(t, err)

	req = req.WithContext(context.WithValue(req.Context(), UserIDKey(), "not-a-uuid"))
	_, err = GetUserID(req)
	assert.Error(t, err)

	req = req.WithContext(context.WithValue(req.Context(), UserIDKey(), userID))
	got, err := GetUserID(req)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer   abc.def.ghi  ")

	token, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)
}
