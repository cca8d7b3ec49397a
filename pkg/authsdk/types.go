package authsdk

// Sign-in status values carried in SignInResponse.Status.
const (
	StatusAuthenticated = "authenticated"
	StatusOTPPending    = "otp_pending"
	StatusSignedOut     = "signed_out"
)

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// SignInRequest is the body of POST /v1/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest is the body of POST /v1/auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// PrincipalResponse is the sanitized principal view. It never carries the
// password hash, refresh token or pending code.
type PrincipalResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

// SignInResponse is returned by sign-in (200 or 202) and OTP verification.
// Token fields are empty while Status is StatusOTPPending.
type SignInResponse struct {
	Status       string             `json:"status"`
	AccessToken  string             `json:"access_token,omitempty"`
	RefreshToken string             `json:"refresh_token,omitempty"`
	TokenType    string             `json:"token_type,omitempty"`
	ExpiresIn    int                `json:"expires_in,omitempty"`
	User         *PrincipalResponse `json:"user,omitempty"`
}

// RefreshResponse is returned by POST /v1/auth/refresh. RefreshToken is only
// set when the server rotates refresh tokens.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// StatusResponse is a bare {"status": ...} body.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
