package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/identity/pkg/idx"
)

// Default token TTL constants. Services override them through config.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims carried by both access and refresh tokens. Sub, Email and Role are
// the contract consumers rely on; the registered fields are bookkeeping.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the principal at the time the token was minted.
	Email string `json:"email"`

	// Role of the principal ("user", "staff", "admin").
	Role string `json:"role"`
}

// NewClaims builds minimally-correct claims.
func NewClaims(subject, email, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(now),
		},
		Email: email,
		Role:  role,
	}
}

// NewJTI returns a ULID stamped with the mint time for the "jti" claim. Two
// tokens minted for the same principal in the same second still differ.
func NewJTI(now time.Time) string {
	return idx.NewAt(now).String()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// UnverifiedSubject reads the "sub" claim without checking the signature.
// Use it only to route a token to the verifier that will check it.
func UnverifiedSubject(token string) (string, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return "", ErrMalformed
	}
	if c.Subject == "" {
		return "", ErrInvalidClaim
	}
	return c.Subject, nil
}
