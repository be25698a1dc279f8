package config

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TokenConfig holds configuration for hashing static access tokens.
type TokenConfig struct {
	BcryptCost int
}

// NewTokenConfig creates a token configuration from environment variables.
// It reads BCRYPT_COST (default: 12).
func NewTokenConfig() (*TokenConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12"
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	config := &TokenConfig{BcryptCost: cost}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// normalize validates the configuration.
func (c *TokenConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// HashToken hashes a token with bcrypt so it can be configured without storing it in clear.
func (c *TokenConfig) HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

// IsHashedToken reports whether a configured token is a bcrypt hash.
func IsHashedToken(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// VerifyToken checks a presented token against the configured one, which may
// be a bcrypt hash or clear text. Clear tokens are compared in constant time.
func VerifyToken(presented, stored string) bool {
	if presented == "" || stored == "" {
		return false
	}
	if IsHashedToken(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}
