package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	identityhttp "github.com/aussiebroadwan/identity/internal/identity/http"
	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/metrics"
	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/identity/pkg/authsdk"
)

type captureMailer struct{ codes map[string]string }

func (m *captureMailer) Send(_ context.Context, to, code, _ string) error {
	m.codes[to] = code
	return nil
}

type testServer struct {
	*httptest.Server
	mailer *captureMailer
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := service.NewTokenService(service.TokenConfig{
		Issuer:        "identity-test",
		AccessSecret:  []byte("access-secret-0123456789abcdef"),
		RefreshSecret: []byte("refresh-secret-0123456789abcdef"),
		AccessTTL:     10 * time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	mailer := &captureMailer{codes: map[string]string{}}
	sessions := &service.SessionManager{
		Store:  st,
		Tokens: tokens,
		OTP:    &service.OTPIssuer{Store: st, Mailer: mailer},
	}

	ctx := context.Background()
	for _, p := range []service.NewPrincipal{
		{Email: "user@x.com", Password: "password1", FirstName: "Ursula", Role: domain.RoleStandard},
		{Email: "staff@x.com", Password: "password1", Role: domain.RoleStaff},
		{Email: "admin@x.com", Password: "password1", Role: domain.RoleElevated},
	} {
		_, err := service.CreatePrincipal(ctx, st, p)
		require.NoError(t, err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := identityhttp.NewRouter(sessions, "test", st, metrics.New(), logger)
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v))
	return v
}

func (s *testServer) signIn(t *testing.T, email string) authsdk.SignInResponse {
	t.Helper()
	resp, body := s.do(t, "POST", "/v1/auth/signin", "", authsdk.SignInRequest{Email: email, Password: "password1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return decode[authsdk.SignInResponse](t, body)
}

func TestSignInFlow(t *testing.T) {
	s := newServer(t)

	res := s.signIn(t, "user@x.com")
	require.Equal(t, authsdk.StatusAuthenticated, res.Status)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.Equal(t, "Bearer", res.TokenType)
	require.InDelta(t, 600, res.ExpiresIn, 2)
	require.Equal(t, "user@x.com", res.User.Email)
	require.Equal(t, "Ursula", res.User.FirstName)

	resp, body := s.do(t, "GET", "/v1/me", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[authsdk.PrincipalResponse](t, body)
	require.Equal(t, res.User.ID, me.ID)
	require.NotContains(t, string(body), "password")

	resp, body = s.do(t, "POST", "/v1/auth/refresh", res.RefreshToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	ref := decode[authsdk.RefreshResponse](t, body)
	require.NotEmpty(t, ref.AccessToken)
	require.Empty(t, ref.RefreshToken)

	resp, _ = s.do(t, "POST", "/v1/auth/signout", ref.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, "POST", "/v1/auth/refresh", res.RefreshToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeUnauthorized, decode[authsdk.ErrorResponse](t, body).Error)
}

func TestAdminSignInNeedsOTP(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, "POST", "/v1/auth/signin", "", authsdk.SignInRequest{Email: "admin@x.com", Password: "password1"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	pending := decode[authsdk.SignInResponse](t, body)
	require.Equal(t, authsdk.StatusOTPPending, pending.Status)
	require.Empty(t, pending.AccessToken)

	resp, body = s.do(t, "POST", "/v1/auth/verify-otp", "", authsdk.VerifyOTPRequest{Email: "admin@x.com", OTP: "0000"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidOTP, decode[authsdk.ErrorResponse](t, body).Error)

	code := s.mailer.codes["admin@x.com"]
	resp, body = s.do(t, "POST", "/v1/auth/verify-otp", "", authsdk.VerifyOTPRequest{Email: "admin@x.com", OTP: code})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decode[authsdk.SignInResponse](t, body)
	require.Equal(t, "admin", res.User.Role)

	resp, _ = s.do(t, "GET", "/v1/admin/ping", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, "POST", "/v1/auth/signin", "", authsdk.SignInRequest{Email: "ghost@x.com", Password: "password1"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeNotFound, decode[authsdk.ErrorResponse](t, body).Error)

	resp, body = s.do(t, "POST", "/v1/auth/signin", "", authsdk.SignInRequest{Email: "user@x.com", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidCredentials, decode[authsdk.ErrorResponse](t, body).Error)

	resp, _ = s.do(t, "POST", "/v1/auth/signin", "", map[string]string{"email": "user@x.com", "pass": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGuardResponses(t *testing.T) {
	s := newServer(t)
	staff := s.signIn(t, "staff@x.com")

	resp, body := s.do(t, "GET", "/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(body), "token not provided")
	require.Equal(t, `Bearer realm="identity"`, resp.Header.Get("WWW-Authenticate"))

	req, _ := http.NewRequest("GET", s.URL+"/v1/me", nil)
	req.Header.Set("Authorization", "Token abc")
	r2, err := s.Client().Do(req)
	require.NoError(t, err)
	r2.Body.Close()
	require.Equal(t, http.StatusUnauthorized, r2.StatusCode)

	resp, _ = s.do(t, "GET", "/v1/me", staff.RefreshToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.True(t, strings.Contains(resp.Header.Get("WWW-Authenticate"), "invalid_token"))

	resp, _ = s.do(t, "GET", "/v1/admin/ping", staff.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/v1/auth/refresh", staff.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/v1/auth/refresh", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Each rejected refresh is counted once, whichever layer rejected it.
	_, body = s.do(t, "GET", "/metrics", "", nil)
	require.Contains(t, string(body), `identity_refresh_total{outcome="unauthorized"} 2`)
}

func TestSystemRoutes(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, "GET", "/livez", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "test", decode[authsdk.HealthResponse](t, body).Version)

	resp, body = s.do(t, "GET", "/readyz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, body).Checks["database"])

	s.signIn(t, "user@x.com")
	resp, body = s.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `identity_signin_total{outcome="authenticated"} 1`)

	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
