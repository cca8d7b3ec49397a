package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url). Use this
	// for HMAC signing secrets.
	TokenSize256 = 32
)

// GenerateToken creates a random base64url (unpadded) token of size bytes.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}

// RandomIntInclusive returns a uniformly distributed integer in [lo, hi]
// drawn from crypto/rand.
func RandomIntInclusive(lo, hi int64) (int64, error) {
	if hi < lo {
		return 0, fmt.Errorf("invalid range [%d, %d]", lo, hi)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		return 0, fmt.Errorf("failed to draw random integer: %w", err)
	}
	return lo + n.Int64(), nil
}
