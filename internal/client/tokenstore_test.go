package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/types"
)

func TestTokenStore_LoadMissing(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "none.json"))

	session, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestTokenStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewTokenStore(path)
	user := &types.User{ID: uuid.New(), Email: "student@example.com", Role: types.RoleStudent}

	require.NoError(t, store.Save(&Session{Token: "abc", User: user}))

	session, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "abc", session.Token)
	assert.Equal(t, user.ID, session.User.ID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	session, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestTokenStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewTokenStore(path).Load()
	assert.ErrorContains(t, err, "failed to parse session")
}

func TestTokenStore_EmptyTokenIsNoSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":""}`), 0o600))

	session, err := NewTokenStore(path).Load()
	require.NoError(t, err)
	assert.Nil(t, session)
}
