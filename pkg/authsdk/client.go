package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the identity service's public endpoints.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new identity service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SignIn submits credentials. Status is StatusAuthenticated with tokens, or
// StatusOTPPending when a code was emailed and VerifyOTP must follow.
func (c *SDKClient) SignIn(ctx context.Context, email, password string) (*SignInResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/signin", SignInRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var out SignInResponse
	if err := decodeJSON(resp, &out, http.StatusOK, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP completes a pending sign-in with the emailed code.
func (c *SDKClient) VerifyOTP(ctx context.Context, email, code string) (*SignInResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/verify-otp", VerifyOTPRequest{Email: email, OTP: code}, "")
	if err != nil {
		return nil, err
	}

	var out SignInResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", nil, refreshToken)
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignOut revokes the refresh token held for the principal behind accessToken.
func (c *SDKClient) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/signout", nil, accessToken)
	if err != nil {
		return err
	}

	var out StatusResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// Me returns the principal behind accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*PrincipalResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/me", nil, accessToken)
	if err != nil {
		return nil, err
	}

	var out PrincipalResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminPing calls the admin-only probe route.
func (c *SDKClient) AdminPing(ctx context.Context, accessToken string) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/admin/ping", nil, accessToken)
	if err != nil {
		return err
	}

	var out StatusResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// NewSession wraps an authenticated sign-in response. It returns nil when
// the response carries no tokens (for example while an OTP is pending).
func (c *SDKClient) NewSession(res *SignInResponse) *Session {
	if res == nil || res.AccessToken == "" {
		return nil
	}
	return newSession(c, res.AccessToken, res.RefreshToken, res.ExpiresIn)
}
