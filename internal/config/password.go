// Package config provides password configuration and hashing functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes; longer passwords are rejected instead of silently truncated.
const maxPasswordBytes = 72

// PasswordConfig holds configuration for password hashing and verification.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string // optional global secret appended before hashing
}

// NewPasswordConfig creates a new password configuration from environment variables.
// It reads BCRYPT_COST (default: 12) and optionally PASSWORD_PEPPER.
func NewPasswordConfig() (*PasswordConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12"
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	config := &PasswordConfig{
		BcryptCost: cost,
		Pepper:     os.Getenv("PASSWORD_PEPPER"),
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-14)", c.BcryptCost, bcrypt.MinCost)
	}
	if len(c.Pepper) > 32 {
		return fmt.Errorf("PASSWORD_PEPPER too long: %d bytes (max 32)", len(c.Pepper))
	}
	return nil
}

func (c *PasswordConfig) peppered(pw string) string {
	if c.Pepper != "" {
		return pw + c.Pepper
	}
	return pw
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	if pw == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	password := c.peppered(pw)
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("password too long: %d bytes (max %d including pepper)", len(password), maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword verifies a password against a stored hash (with optional pepper).
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(c.peppered(pw)))
	return err == nil
}
