package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Validate checks the configuration for serve mode. It fails fast with
// a sentinel error wrapped with context so callers can errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Addr == "" {
		return fmt.Errorf("%w: addr is empty", ErrInvalidAddr)
	}

	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", ErrInvalidDataDir)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("%w: set VYOM_JWT_SECRET", ErrMissingJWTSecret)
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("%w: need at least %d bytes, got %d",
			ErrWeakJWTSecret, MinJWTSecretLength, len(c.JWTSecret))
	}

	if c.TokenTTLMinutes <= 0 || c.TokenTTLMinutes > MaxTokenTTLMinutes {
		return fmt.Errorf("%w: token_ttl_minutes must be in (0, %d], got %d",
			ErrInvalidTokenTTL, MaxTokenTTLMinutes, c.TokenTTLMinutes)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate_limit_rps=%d rate_limit_burst=%d",
			ErrInvalidRateLimit, c.RateLimitRPS, c.RateLimitBurst)
	}

	// 0 means "use bcrypt.DefaultCost"; anything else must be in range.
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("%w: bcrypt_cost must be 0 or in [%d, %d], got %d",
			ErrInvalidBcryptCost, bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}

	return nil
}
