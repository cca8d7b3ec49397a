package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog.Default when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithPrincipal tags the context logger with the authenticated principal.
func WithPrincipal(ctx context.Context, principalID, role string) context.Context {
	l := FromContext(ctx).With("principal_id", principalID, "role", role)
	return WithContext(ctx, l)
}
