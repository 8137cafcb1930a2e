package server

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/exam-grader/internal/config"
	"github.com/jonathan/exam-grader/internal/testutil"
	"github.com/jonathan/exam-grader/internal/types"
)

func setupUserService(_ *testing.T) (*UserService, *testutil.MemoryStore) {
	store := testutil.NewMemoryStore()
	return NewUserService(store, &config.PasswordConfig{BcryptCost: bcrypt.MinCost}), store
}

func TestUserService_Register(t *testing.T) {
	svc, store := setupUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &types.RegisterRequest{Email: "Ada@Example.com", FullName: "Ada", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, types.RoleStudent, user.Role)

	stored, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))
}

func TestUserService_Register_Duplicate(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()
	req := &types.RegisterRequest{Email: "dup@example.com", Password: "password123", Role: types.RoleProfessor}

	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	var exists *ErrEmailAlreadyExists
	assert.ErrorAs(t, err, &exists)
}

func TestUserService_Login(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, &types.RegisterRequest{Email: "prof@example.com", Password: "password123", Role: types.RoleProfessor})
	require.NoError(t, err)

	user, err := svc.Login(ctx, &types.LoginRequest{Email: "PROF@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, types.RoleProfessor, user.Role)

	var invalid *ErrInvalidCredentials
	_, err = svc.Login(ctx, &types.LoginRequest{Email: "prof@example.com", Password: "wrong-password"})
	assert.ErrorAs(t, err, &invalid)
	_, err = svc.Login(ctx, &types.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorAs(t, err, &invalid)
}

func TestUserService_UpdatePassword(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, &types.RegisterRequest{Email: "s@example.com", Password: "password123"})
	require.NoError(t, err)

	var mismatch *ErrPasswordMismatch
	err = svc.UpdatePassword(ctx, user.ID, "not-the-password", "newpassword456")
	assert.ErrorAs(t, err, &mismatch)

	require.NoError(t, svc.UpdatePassword(ctx, user.ID, "password123", "newpassword456"))
	_, err = svc.Login(ctx, &types.LoginRequest{Email: "s@example.com", Password: "newpassword456"})
	assert.NoError(t, err)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	svc, _ := setupUserService(t)

	_, err := svc.GetProfile(context.Background(), uuid.New())

	var notFound *ErrUserNotFound
	assert.ErrorAs(t, err, &notFound)
}
