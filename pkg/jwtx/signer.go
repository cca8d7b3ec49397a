package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
}

// MinSecretLength is the shortest HMAC secret accepted, in bytes.
const MinSecretLength = 16

var (
	ErrEmptySecret = errors.New("jwtx: empty secret")
	ErrShortSecret = errors.New("jwtx: secret shorter than 16 bytes")
)

// HMACSigner signs tokens with HS256 and stamps a fixed "kid" header so the
// verifying side can reject tokens minted for another purpose up front.
type HMACSigner struct {
	kid    string
	secret []byte
}

// NewHMACSigner creates an HS256 signer. The secret is copied.
func NewHMACSigner(kid string, secret []byte) (*HMACSigner, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	return &HMACSigner{kid: kid, secret: append([]byte(nil), secret...)}, nil
}

func (s *HMACSigner) Alg() string { return jwt.SigningMethodHS256.Alg() }
func (s *HMACSigner) KID() string { return s.kid }

// Sign turns the claims into a compact HS256 JWT.
func (s *HMACSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}
	return t.SignedString(s.secret)
}

func checkSecret(secret []byte) error {
	switch {
	case len(secret) == 0:
		return ErrEmptySecret
	case len(secret) < MinSecretLength:
		return ErrShortSecret
	}
	return nil
}
