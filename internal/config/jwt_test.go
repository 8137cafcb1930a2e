package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig_DefaultValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-0123")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "")
	t.Setenv("JWT_ISSUER", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "test-secret-key-0123", cfg.Secret)
	assert.Equal(t, 30, cfg.ExpirationMinutes, "should use default expiration of 30 minutes")
	assert.Equal(t, "exam-grader", cfg.Issuer)
	assert.Equal(t, 30*time.Minute, cfg.TTL())
}

func TestNewJWTConfig_CustomExpiration(t *testing.T) {
	tests := []struct {
		name            string
		expiration      string
		expectedMinutes int
		wantErr         bool
	}{
		{name: "one hour", expiration: "60", expectedMinutes: 60},
		{name: "minimum", expiration: "1", expectedMinutes: 1},
		{name: "thirty days", expiration: "43200", expectedMinutes: 43200},
		{name: "zero", expiration: "0", wantErr: true},
		{name: "negative", expiration: "-5", wantErr: true},
		{name: "too long", expiration: "43201", wantErr: true},
		{name: "not a number", expiration: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret-key-0123")
			t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", tt.expiration)

			cfg, err := NewJWTConfig()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedMinutes, cfg.ExpirationMinutes)
		})
	}
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := NewJWTConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestNewJWTConfig_ShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	cfg, err := NewJWTConfig()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "at least 16 characters")
}

func TestNewJWTConfig_CustomIssuer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-0123")
	t.Setenv("JWT_ISSUER", "grader-staging")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "grader-staging", cfg.Issuer)
}
