package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
	"github.com/aussiebroadwan/identity/pkg/httpx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// AuthHandler serves the sign-in, code verification, refresh and sign-out
// endpoints.
type AuthHandler struct {
	Sessions *service.SessionManager
	Tokens   *service.TokenService
}

// HandleSignIn checks a password.
//
//	@Summary		Sign in with email and password
//	@Description	Standard accounts receive tokens immediately. Accounts that require a second factor
//	@Description	receive 202 with status "otp_pending" and get a 4-digit code by email.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignInRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.SignInResponse	"Authenticated"
//	@Success		202		{object}	authsdk.SignInResponse	"Code sent, call /v1/auth/verify-otp"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Unknown email"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/signin [post].
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("email and password are required").WriteError(w)
		return
	}

	res, err := h.Sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSignIn(w, res)
}

// HandleVerifyOTP completes a pending sign-in.
//
//	@Summary		Verify an emailed sign-in code
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyOTPRequest	true	"Email and code"
//	@Success		200		{object}	authsdk.SignInResponse		"Authenticated"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Malformed request, or invalid or expired code"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/v1/auth/verify-otp [post].
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		authsdk.ErrInvalidRequest.WithDescription("email and otp are required").WriteError(w)
		return
	}

	res, err := h.Sessions.VerifyOTP(r.Context(), req.Email, strings.TrimSpace(req.OTP))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeSignIn(w, res)
}

func (h *AuthHandler) writeSignIn(w http.ResponseWriter, res domain.SignInResult) {
	if res.State == domain.StateOTPPending {
		httpx.WriteJSON(w, http.StatusAccepted, authsdk.SignInResponse{Status: authsdk.StatusOTPPending})
		return
	}

	user := principalResponse(*res.Principal)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SignInResponse{
		Status:       authsdk.StatusAuthenticated,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		TokenType:    authsdk.TokenTypeBearer,
		ExpiresIn:    expiresIn(res.Tokens.AccessExpiresAt, h.Tokens.Now()),
		User:         &user,
	})
}

// HandleRefresh exchanges a refresh token for a new access token.
//
//	@Summary		Refresh the access token
//	@Description	Send the refresh token as the bearer credential. The refresh token itself is
//	@Description	returned again only when the server rotates refresh tokens.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.RefreshResponse	"New access token"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid, expired or revoked refresh token"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := httpx.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer realm="identity"`)
		authsdk.ErrUnauthorized.WithDescription(err.Error()).WriteError(w)
		return
	}

	subject, err := h.Tokens.Subject(raw)
	if err != nil {
		slogx.FromContext(ctx).Info("refresh token rejected", "err", err)
		h.Sessions.Metrics.Refresh("unauthorized")
		writeServiceError(w, r, service.ErrUnauthorized)
		return
	}

	tok, err := h.Sessions.Refresh(ctx, subject, raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    authsdk.TokenTypeBearer,
		ExpiresIn:    expiresIn(tok.ExpiresAt, h.Tokens.Now()),
	})
}

// HandleSignOut revokes the caller's refresh token.
//
//	@Summary		Sign out
//	@Description	Clears the stored refresh token. Access tokens remain valid until they expire.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.StatusResponse	"Signed out"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Principal no longer exists"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/signout [post].
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	id := httpx.PrincipalIDFromContext(r.Context())
	if id == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	if err := h.Sessions.SignOut(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: authsdk.StatusSignedOut})
}

func principalResponse(v domain.PrincipalView) authsdk.PrincipalResponse {
	return authsdk.PrincipalResponse{
		ID:        v.ID,
		Email:     v.Email,
		FirstName: v.FirstName,
		LastName:  v.LastName,
		Role:      string(v.Role),
	}
}

func expiresIn(exp, now time.Time) int {
	return max(int(exp.Sub(now).Seconds()), 0)
}
