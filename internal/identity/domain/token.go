package domain

import "time"

// TokenPair is issued on a completed sign-in.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// AccessToken is issued on refresh. RefreshToken is only set when refresh
// tokens are rotated.
type AccessToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
