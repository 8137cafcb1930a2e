// Package types provides the wire types shared by the exam grader server, its API client and the CLI.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Role is the role of an authenticated user.
type Role string

// Known roles. Professors and admins manage exams and grading; students consult and contest.
const (
	RoleAdmin     Role = "admin"
	RoleProfessor Role = "professor"
	RoleStudent   Role = "student"
)

// CanManage reports whether the role may create, grade and delete exam data.
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleProfessor
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessor, RoleStudent:
		return true
	}
	return false
}

// RegisterRequest represents the request to create a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name,omitempty" validate:"max=200"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=admin professor student"`
}

// LoginRequest represents the login request. The server also accepts the OAuth2
// password form (username/password) and maps it onto this struct.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User represents a user profile for API responses (password hash excluded).
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse is returned by the login endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UpdatePasswordRequest represents a password update request.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// Validate validates the RegisterRequest using the validator.
func (r *RegisterRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdatePasswordRequest using the validator.
func (r *UpdatePasswordRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
