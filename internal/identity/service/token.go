package service

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

// Key ids stamped into the token header.
const (
	AccessKID  = "access"
	RefreshKID = "refresh"
)

var ErrSameSecret = errors.New("access and refresh secrets must differ")

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// TokenService mints and verifies access and refresh tokens. The two kinds
// are signed with different secrets so neither verifies as the other.
type TokenService struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	now             func() time.Time
	accessSigner    *jwtx.HMACSigner
	refreshSigner   *jwtx.HMACSigner
	accessVerifier  *jwtx.HMACVerifier
	refreshVerifier *jwtx.HMACVerifier
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, jwtx.ErrEmptySecret
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, ErrSameSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &TokenService{
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}

	opts := jwtx.VerifyOptions{Issuer: cfg.Issuer, Leeway: cfg.Leeway, Now: cfg.Now}
	var err error
	if s.accessSigner, err = jwtx.NewHMACSigner(AccessKID, cfg.AccessSecret); err != nil {
		return nil, fmt.Errorf("access secret: %w", err)
	}
	if s.refreshSigner, err = jwtx.NewHMACSigner(RefreshKID, cfg.RefreshSecret); err != nil {
		return nil, fmt.Errorf("refresh secret: %w", err)
	}
	if s.accessVerifier, err = jwtx.NewHMACVerifier(AccessKID, cfg.AccessSecret, opts); err != nil {
		return nil, fmt.Errorf("access secret: %w", err)
	}
	if s.refreshVerifier, err = jwtx.NewHMACVerifier(RefreshKID, cfg.RefreshSecret, opts); err != nil {
		return nil, fmt.Errorf("refresh secret: %w", err)
	}
	return s, nil
}

// MintAccessToken returns a signed access token and its expiry.
func (s *TokenService) MintAccessToken(p domain.Principal) (string, time.Time, error) {
	return s.mint(s.accessSigner, p, s.AccessTTL)
}

// MintRefreshToken returns a signed refresh token and its expiry.
func (s *TokenService) MintRefreshToken(p domain.Principal) (string, time.Time, error) {
	return s.mint(s.refreshSigner, p, s.RefreshTTL)
}

// MintPair mints both tokens or neither.
func (s *TokenService) MintPair(p domain.Principal) (domain.TokenPair, error) {
	access, exp, err := s.MintAccessToken(p)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, _, err := s.MintRefreshToken(p)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: exp}, nil
}

func (s *TokenService) mint(signer *jwtx.HMACSigner, p domain.Principal, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC()
	claims := jwtx.NewClaims(p.ID, p.Email, string(p.Role), s.Issuer, ttl, now)
	tok, err := signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", signer.KID(), err)
	}
	return tok, claims.ExpiresAt.Time, nil
}

// VerifyAccessToken returns the claims of a valid access token. Errors are
// the jwtx sentinels so callers can log which check failed.
func (s *TokenService) VerifyAccessToken(tok string) (jwtx.Claims, error) {
	return s.accessVerifier.Verify(tok)
}

// VerifyRefreshToken is VerifyAccessToken for refresh tokens.
func (s *TokenService) VerifyRefreshToken(tok string) (jwtx.Claims, error) {
	return s.refreshVerifier.Verify(tok)
}

// Subject names the principal a token claims to belong to. Nothing about the
// token is verified; Refresh does that.
func (s *TokenService) Subject(tok string) (string, error) {
	return jwtx.UnverifiedSubject(tok)
}

// Now is the clock the service mints with.
func (s *TokenService) Now() time.Time { return s.now() }
