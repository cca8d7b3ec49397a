package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// writeServiceError maps a session manager error to its response. Internal
// failures are logged here and never described to the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInternal):
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInvalidOTP):
		authsdk.ErrInvalidOTP.WriteError(w)
	case errors.Is(err, service.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", `Bearer realm="identity", error="invalid_token"`)
		authsdk.ErrUnauthorized.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		authsdk.ErrForbidden.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unmapped service error", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
