package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordConfig(t *testing.T) {
	tests := []struct {
		name       string
		bcryptCost string
		pepper     string
		wantCost   int
		wantErr    string
	}{
		{name: "default cost", wantCost: 12},
		{name: "minimum cost", bcryptCost: "4", wantCost: 4},
		{name: "maximum cost", bcryptCost: "14", wantCost: 14},
		{name: "cost too low", bcryptCost: "3", wantErr: "out of range"},
		{name: "cost too high", bcryptCost: "15", wantErr: "out of range"},
		{name: "cost not a number", bcryptCost: "twelve", wantErr: "invalid BCRYPT_COST"},
		{name: "pepper accepted", bcryptCost: "4", pepper: "pepper", wantCost: 4},
		{name: "pepper too long", bcryptCost: "4", pepper: strings.Repeat("p", 33), wantErr: "PASSWORD_PEPPER too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", tt.bcryptCost)
			t.Setenv("PASSWORD_PEPPER", tt.pepper)

			cfg, err := NewPasswordConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, cfg.BcryptCost)
			assert.Equal(t, tt.pepper, cfg.Pepper)
		})
	}
}

func TestPasswordConfig_HashAndVerify(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: bcrypt.MinCost}

	hash, err := cfg.HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.True(t, cfg.VerifyPassword("correct horse battery", hash))
	assert.False(t, cfg.VerifyPassword("wrong password", hash))
	assert.False(t, cfg.VerifyPassword("correct horse battery", ""))
}

func TestPasswordConfig_Pepper(t *testing.T) {
	peppered := &PasswordConfig{BcryptCost: bcrypt.MinCost, Pepper: "server-pepper"}
	plain := &PasswordConfig{BcryptCost: bcrypt.MinCost}

	hash, err := peppered.HashPassword("professor-pass")
	require.NoError(t, err)

	assert.True(t, peppered.VerifyPassword("professor-pass", hash))
	assert.False(t, plain.VerifyPassword("professor-pass", hash), "hash must not verify without the pepper")
}

func TestPasswordConfig_EmptyPassword(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: bcrypt.MinCost}

	_, err := cfg.HashPassword("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestPasswordConfig_PasswordLength(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: bcrypt.MinCost, Pepper: "12345678"}

	_, err := cfg.HashPassword(strings.Repeat("a", 64))
	assert.NoError(t, err, "64 bytes plus an 8 byte pepper fits in 72")

	_, err = cfg.HashPassword(strings.Repeat("a", 65))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password too long")
}
