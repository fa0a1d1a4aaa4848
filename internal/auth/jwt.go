// Package auth issues and verifies the HS256 bearer tokens that gate
// the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates the token failed signature or claims
	// validation (including expiry).
	ErrInvalidToken = errors.New("invalid token")
)

// Claims extends the registered JWT claims with the username the token
// was issued to.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// IssueToken signs an HS256 token for username valid for ttl.
func IssueToken(username string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// ParseToken validates tokenString and returns the username it was
// issued to. Expired, malformed or foreign-key tokens all yield
// ErrInvalidToken.
func ParseToken(tokenString string, secret []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Username == "" {
		return "", ErrInvalidToken
	}

	return claims.Username, nil
}
