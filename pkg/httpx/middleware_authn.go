package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// AuthnMiddleware runs the guard on every request and, on success, attaches
// the verified claims to the request context. Failures are answered with an
// RFC 6750 challenge.
func AuthnMiddleware(g *Guard, roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims, err := g.Authorize(ctx, r.Header.Get("Authorization"), roles...)
			if err != nil {
				log := slogx.FromContext(ctx)
				switch {
				case errors.Is(err, ErrTokenNotProvided):
					writeBearerError(w, http.StatusUnauthorized, "", err.Error())
				case errors.Is(err, ErrMalformedHeader), errors.Is(err, ErrInvalidToken):
					log.Warn("bearer token rejected", "err", err)
					writeBearerError(w, http.StatusUnauthorized, "invalid_token", ErrInvalidToken.Error())
				case errors.Is(err, ErrForbidden):
					writeBearerScopeError(w, roles...)
				default:
					log.Error("authorization failed", "err", err)
					WriteJSON(w, http.StatusInternalServerError, map[string]string{
						"error":             "server_error",
						"error_description": "internal server error",
					})
				}
				return
			}

			ctx = slogx.WithPrincipal(ctx, claims.Subject, claims.Role)
			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// RFC 6750-compliant error response for bearer auth. An empty code means no
// credentials were presented, so only the scheme is challenged.
func writeBearerError(w http.ResponseWriter, status int, code, desc string) {
	challenge := `Bearer realm="identity"`
	if code != "" {
		challenge += `, error="` + code + `", error_description="` + desc + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)

	errCode := code
	if errCode == "" {
		errCode = "unauthorized"
	}
	WriteJSON(w, status, map[string]string{
		"error":             errCode,
		"error_description": desc,
	})
}

// RFC 6750-compliant error response for a valid token lacking the role.
func writeBearerScopeError(w http.ResponseWriter, roles ...string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer realm="identity", error="insufficient_scope", scope="`+strings.Join(roles, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "forbidden",
		"error_description": ErrForbidden.Error(),
	})
}
