package domain

// SessionState is where a sign-in attempt stands.
//
//	Unauthenticated -> CredentialsChecked -> Authenticated
//	                                      -> OTPPending -> Authenticated
//	any step that fails                   -> Failed
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateCredentialsChecked
	StateOTPPending
	StateAuthenticated
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateCredentialsChecked:
		return "credentials_checked"
	case StateOTPPending:
		return "otp_pending"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SignInResult is the outcome of SignIn or VerifyOTP. Tokens and Principal
// are only set when State is StateAuthenticated.
type SignInResult struct {
	State     SessionState
	Tokens    *TokenPair
	Principal *PrincipalView
}
