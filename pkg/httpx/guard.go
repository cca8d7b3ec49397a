package httpx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

var (
	ErrTokenNotProvided = errors.New("token not provided")
	ErrMalformedHeader  = errors.New("malformed authorization header")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrForbidden        = errors.New("insufficient role")
)

// Guard decision outcomes, reported through Guard.Observe.
const (
	OutcomeAllowed    = "allowed"
	OutcomeNoToken    = "no_token"
	OutcomeMalformed  = "malformed"
	OutcomeInvalid    = "invalid"
	OutcomeForbidden  = "forbidden"
	OutcomeLookupFail = "lookup_error"
)

// TokenVerifier verifies access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (jwtx.Claims, error)
}

// PrincipalLookup reports whether a principal still exists.
type PrincipalLookup interface {
	PrincipalExists(ctx context.Context, id string) (bool, error)
}

// Guard decides whether a request carrying an access token may reach a
// protected operation. It never mutates the store.
type Guard struct {
	Verifier TokenVerifier

	// Principals, when set, re-checks that the token subject still exists.
	Principals PrincipalLookup

	// Observe, when set, receives one outcome per decision.
	Observe func(outcome string)
}

// Authorize checks header and, when required is non-empty, that the token's
// role matches one of the required role names (case-insensitive).
func (g *Guard) Authorize(ctx context.Context, header string, required ...string) (jwtx.Claims, error) {
	claims, outcome, err := g.authorize(ctx, header, required)
	if g.Observe != nil {
		g.Observe(outcome)
	}
	return claims, err
}

func (g *Guard) authorize(ctx context.Context, header string, required []string) (jwtx.Claims, string, error) {
	raw, err := BearerToken(header)
	if err != nil {
		if errors.Is(err, ErrTokenNotProvided) {
			return jwtx.Claims{}, OutcomeNoToken, err
		}
		return jwtx.Claims{}, OutcomeMalformed, err
	}

	claims, err := g.Verifier.VerifyAccessToken(raw)
	if err != nil {
		return jwtx.Claims{}, OutcomeInvalid, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if g.Principals != nil {
		ok, err := g.Principals.PrincipalExists(ctx, claims.Subject)
		if err != nil {
			return jwtx.Claims{}, OutcomeLookupFail, fmt.Errorf("guard: principal lookup: %w", err)
		}
		if !ok {
			return jwtx.Claims{}, OutcomeInvalid, ErrInvalidToken
		}
	}

	if len(required) == 0 {
		return claims, OutcomeAllowed, nil
	}
	for _, role := range required {
		if strings.EqualFold(role, claims.Role) {
			return claims, OutcomeAllowed, nil
		}
	}
	return jwtx.Claims{}, OutcomeForbidden, ErrForbidden
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrTokenNotProvided
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedHeader
	}
	return token, nil
}
