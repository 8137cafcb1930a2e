package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

// User is a stored account, including its password hash.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         types.Role `json:"role"`
	PasswordHash string     `json:"-" db:"password_hash"` // Never serialize to JSON
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Profile returns the API view of the user.
func (u *User) Profile() types.User {
	return types.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
