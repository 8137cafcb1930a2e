package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/exam-grader/internal/server/middleware"
	"github.com/jonathan/exam-grader/internal/types"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService *UserService
	jwtService  *JWTService
	validator   *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(userService *UserService, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtService:  jwtService,
		validator:   validator.New(),
	}
}

// Register handles user registration requests.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, user)
}

// Login handles OAuth2 password-form and JSON login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	user, err := h.userService.Login(r.Context(), req)
	if err != nil {
		if HTTPStatus(err) == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		handleError(w, err)
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	jsonResponse(w, http.StatusOK, types.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// decodeLogin reads the OAuth2 password form (username, password) or a JSON body.
func decodeLogin(r *http.Request) (*types.LoginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			return nil, err
		}
		email := r.PostFormValue("username")
		if email == "" {
			email = r.PostFormValue("email")
		}
		return &types.LoginRequest{Email: email, Password: r.PostFormValue("password")}, nil
	default:
		var req types.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// UpdatePassword handles password update requests for the authenticated user.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	if err := h.userService.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		handleError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Password updated successfully",
	})
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			// Return first validation error for simplicity
			ve := validationErrors[0]
			return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
		}
	}
	return "validation error: invalid request"
}
