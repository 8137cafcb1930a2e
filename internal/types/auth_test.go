//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest_Validation(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		request RegisterRequest
		wantErr bool
		errTag  string
	}{
		{
			name: "valid professor",
			request: RegisterRequest{
				Email:    "prof@example.com",
				FullName: "Ada Lovelace",
				Password: "password123",
				Role:     RoleProfessor,
			},
		},
		{
			name: "valid without role",
			request: RegisterRequest{
				Email:    "student@example.com",
				Password: "password123",
			},
		},
		{
			name: "invalid email",
			request: RegisterRequest{
				Email:    "not-an-email",
				Password: "password123",
			},
			wantErr: true,
			errTag:  "email",
		},
		{
			name: "short password",
			request: RegisterRequest{
				Email:    "student@example.com",
				Password: "short",
			},
			wantErr: true,
			errTag:  "min",
		},
		{
			name: "unknown role",
			request: RegisterRequest{
				Email:    "student@example.com",
				Password: "password123",
				Role:     "dean",
			},
			wantErr: true,
			errTag:  "oneof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.request)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			validationErrors, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tt.errTag, validationErrors[0].Tag())
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	req := &LoginRequest{Email: "a@example.com", Password: "x"}
	assert.NoError(t, req.Validate())

	req = &LoginRequest{Email: "a@example.com"}
	assert.Error(t, req.Validate())
}

func TestUpdatePasswordRequest_Validate(t *testing.T) {
	req := &UpdatePasswordRequest{CurrentPassword: "old", NewPassword: "newpassword"}
	assert.NoError(t, req.Validate())

	req.NewPassword = "short"
	assert.Error(t, req.Validate())
}

func TestRole(t *testing.T) {
	assert.True(t, RoleAdmin.CanManage())
	assert.True(t, RoleProfessor.CanManage())
	assert.False(t, RoleStudent.CanManage())

	assert.True(t, RoleStudent.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("assistant").Valid())
}
