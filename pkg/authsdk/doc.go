/*
Package authsdk provides a client SDK and the shared wire types for the
identity service.

# SDKClient vs Session

SDKClient talks to the public endpoints (sign-in, OTP verification, health).
A successful sign-in yields a Session, which carries the token pair and
refreshes the access token transparently when it is about to expire:

	client := authsdk.NewSDKClient("https://identity.example.com")

	res, err := client.SignIn(ctx, "ada@example.com", password)
	if err != nil {
		return err
	}
	if res.Status == authsdk.StatusOTPPending {
		res, err = client.VerifyOTP(ctx, "ada@example.com", codeFromEmail)
		if err != nil {
			return err
		}
	}

	session := client.NewSession(res)
	me, err := session.Me(ctx)
	...
	_ = session.SignOut(ctx)

# Errors

Every non-2xx response is returned as *APIError, carrying the HTTP status
and the {error, error_description} body. Compare with errors.As, or with
errors.Is against the predefined values (matching is by status and code):

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		...
	}

The same type is used server-side to write error responses, so the wire
format has a single definition.
*/
package authsdk
