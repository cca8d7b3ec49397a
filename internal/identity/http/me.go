package http

import (
	"net/http"

	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
)

type MeHandler struct {
	Sessions *service.SessionManager
}

// ServeHTTP returns the authenticated principal.
//
//	@Summary		Current principal
//	@Tags			Principal
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.PrincipalResponse	"Sanitized principal"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Missing or invalid access token"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := httpx.PrincipalIDFromContext(r.Context())
	if id == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	v, err := h.Sessions.Me(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, principalResponse(v))
}

// AdminPingHandler answers only callers holding the admin role.
//
//	@Summary		Admin probe
//	@Description	Role-guarded route; 403 unless the token carries the admin role.
//	@Tags			Principal
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.StatusResponse	"ok"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Role not permitted"
//	@Router			/v1/admin/ping [get].
func AdminPingHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: "ok"})
}
