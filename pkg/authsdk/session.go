package authsdk

import (
	"context"
	"errors"
	"sync"
	"time"
)

// refreshSkew is subtracted from the access token lifetime so a refresh
// happens before the server would reject the token.
const refreshSkew = 30 * time.Second

// ErrNoRefreshToken is returned when the access token expired and the
// session has nothing to refresh it with.
var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// Session represents an authenticated principal with automatic access token
// refresh. Safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, access, refresh string, expiresIn int) *Session {
	return &Session{
		client:       client,
		accessToken:  access,
		refreshToken: refresh,
		expiresAt:    time.Now().Add(time.Duration(expiresIn)*time.Second - refreshSkew),
	}
}

// getValidToken returns a valid access token, refreshing it first if it is
// about to expire.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Refresh forces an access token refresh.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return ErrNoRefreshToken
	}

	res, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return err
	}

	s.accessToken = res.AccessToken
	if res.RefreshToken != "" {
		s.refreshToken = res.RefreshToken
	}
	s.expiresAt = time.Now().Add(time.Duration(res.ExpiresIn)*time.Second - refreshSkew)
	return nil
}

// Me returns the session's principal.
func (s *Session) Me(ctx context.Context) (*PrincipalResponse, error) {
	tok, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Me(ctx, tok)
}

// AdminPing calls the admin-only probe route with the session's token.
func (s *Session) AdminPing(ctx context.Context) error {
	tok, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	return s.client.AdminPing(ctx, tok)
}

// SignOut revokes the refresh token server-side and forgets it locally.
func (s *Session) SignOut(ctx context.Context) error {
	tok, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	if err := s.client.SignOut(ctx, tok); err != nil {
		return err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.mu.Unlock()
	return nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}
