// Package config provides JWT configuration functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// JWTConfig holds configuration for access token generation and validation.
type JWTConfig struct {
	Secret            string
	ExpirationMinutes int
	Issuer            string
}

// minSecretLength is the shortest HS256 secret accepted.
const minSecretLength = 16

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads JWT_SECRET (required), ACCESS_TOKEN_EXPIRE_MINUTES (default: 30)
// and JWT_ISSUER (default: exam-grader).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	expirationStr := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES")
	if expirationStr == "" {
		expirationStr = "30"
	}

	expirationMinutes, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %v", err)
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "exam-grader"
	}

	config := &JWTConfig{
		Secret:            secret,
		ExpirationMinutes: expirationMinutes,
		Issuer:            issuer,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// TTL returns the token lifetime.
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationMinutes) * time.Minute
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.ExpirationMinutes < 1 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be at least 1 minute, got: %d", c.ExpirationMinutes)
	}
	if c.ExpirationMinutes > 60*24*30 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be at most 30 days, got: %d", c.ExpirationMinutes)
	}
	return nil
}
