package domain

import (
	"strings"
	"time"
)

// Principal is an account that can authenticate.
type Principal struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	RefreshToken *string    // raw value of the latest refresh token; nil when signed out
	OTP          *string    // pending 4-digit code
	OTPExpiresAt *time.Time // set iff OTP is set
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPendingOTP reports whether a code is waiting to be verified.
func (p Principal) HasPendingOTP() bool {
	return p.OTP != nil && p.OTPExpiresAt != nil
}

// View returns the sanitized projection of p.
func (p Principal) View() PrincipalView {
	return PrincipalView{
		ID:        p.ID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
	}
}

// PrincipalView is what leaves the service: no hash, token or code.
type PrincipalView struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

// NormalizeEmail is applied on every write and lookup so that lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
