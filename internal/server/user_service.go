package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/config"
	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/types"
)

// UserStore is the user persistence needed by UserService.
type UserStore interface {
	CreateUser(ctx context.Context, email, fullName string, role types.Role, passwordHash string) (*db.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// UserService provides business logic for user authentication operations
type UserService struct {
	db             UserStore
	passwordConfig *config.PasswordConfig
}

// NewUserService creates a new UserService with the given dependencies
func NewUserService(db UserStore, passwordConfig *config.PasswordConfig) *UserService {
	return &UserService{
		db:             db,
		passwordConfig: passwordConfig,
	}
}

// Register creates a new account. The role defaults to student.
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.User, error) {
	exists, err := s.db.CheckEmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, &ErrEmailAlreadyExists{Email: req.Email}
	}

	passwordHash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, &ErrValidation{Field: "password", Message: err.Error()}
	}

	role := req.Role
	if role == "" {
		role = types.RoleStudent
	}

	user, err := s.db.CreateUser(ctx, req.Email, req.FullName, role, passwordHash)
	if err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, db.ErrDuplicate) {
			return nil, &ErrEmailAlreadyExists{Email: req.Email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	profile := user.Profile()
	return &profile, nil
}

// Login authenticates a user and returns user data
func (s *UserService) Login(ctx context.Context, req *types.LoginRequest) (*types.User, error) {
	user, err := s.db.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Security: Always return generic error if user not found or password wrong
	if user == nil {
		return nil, &ErrInvalidCredentials{}
	}
	if !s.passwordConfig.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}

	profile := user.Profile()
	return &profile, nil
}

// GetProfile returns the profile of a user.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &ErrUserNotFound{UserID: userID}
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdatePassword updates a user's password
func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return &ErrUserNotFound{UserID: userID}
	}

	if !s.passwordConfig.VerifyPassword(currentPassword, user.PasswordHash) {
		return &ErrPasswordMismatch{}
	}

	newPasswordHash, err := s.passwordConfig.HashPassword(newPassword)
	if err != nil {
		return &ErrValidation{Field: "new_password", Message: err.Error()}
	}

	if err := s.db.UpdatePassword(ctx, userID, newPasswordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
