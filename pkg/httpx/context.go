package httpx

import (
	"context"

	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyPrincipalID ctxKey = "principal_id"
	CtxKeyClaims      ctxKey = "claims"
)

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyPrincipalID, c.Subject)
	return context.WithValue(ctx, CtxKeyClaims, c)
}

// ClaimsFromContext returns the claims attached by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// PrincipalIDFromContext returns the authenticated principal id, or "".
func PrincipalIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(CtxKeyPrincipalID).(string)
	return id
}
