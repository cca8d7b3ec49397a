package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "identity-test"

var (
	accessSecret  = []byte("access-secret-0123456789abcdef")
	refreshSecret = []byte("refresh-secret-0123456789abcdef")
)

func newPair(t *testing.T, kid string, secret []byte) (*jwtx.HMACSigner, *jwtx.HMACVerifier) {
	t.Helper()
	s, err := jwtx.NewHMACSigner(kid, secret)
	require.NoError(t, err)
	v, err := jwtx.NewHMACVerifier(kid, secret, jwtx.VerifyOptions{Issuer: exampleIssuer})
	require.NoError(t, err)
	return s, v
}

func TestHMACSignAndVerify(t *testing.T) {
	signer, verifier := newPair(t, "access", accessSecret)
	require.Equal(t, "HS256", signer.Alg())
	require.Equal(t, "access", signer.KID())

	claims := jwtx.NewClaims("user-123", "u@x.io", "user", exampleIssuer, 5*time.Minute, time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", got.Subject)
	require.Equal(t, "u@x.io", got.Email)
	require.Equal(t, "user", got.Role)
	require.Equal(t, claims.ID, got.ID)
}

func TestHMACVerify_Failures(t *testing.T) {
	accessSigner, accessVerifier := newPair(t, "access", accessSecret)
	refreshSigner, _ := newPair(t, "refresh", refreshSecret)
	now := time.Now().UTC()

	sign := func(s jwtx.Signer, c jwtx.Claims) string {
		tok, err := s.Sign(c)
		require.NoError(t, err)
		return tok
	}

	// Same kid, different secret: only the signature can catch it.
	forged, err := jwtx.NewHMACSigner("access", []byte("not-the-access-secret-at-all"))
	require.NoError(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwtx.NewClaims("u", "e", "user", exampleIssuer, time.Minute, now))
	hs512.Header["kid"] = "access"
	hs512Token, err := hs512.SignedString(accessSecret)
	require.NoError(t, err)

	opaqueJTI := jwtx.NewClaims("u", "e", "user", exampleIssuer, time.Minute, now)
	opaqueJTI.ID = "c29tZS1yYW5kb20tYnl0ZXM"

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", jwtx.ErrMalformed},
		{"garbage", "not.a.jwt", jwtx.ErrMalformed},
		{"refresh token at access verifier", sign(refreshSigner, jwtx.NewClaims("u", "e", "user", exampleIssuer, time.Minute, now)), jwtx.ErrUnknownKID},
		{"wrong secret", sign(forged, jwtx.NewClaims("u", "e", "user", exampleIssuer, time.Minute, now)), jwtx.ErrInvalidSig},
		{"expired", sign(accessSigner, jwtx.NewClaims("u", "e", "user", exampleIssuer, time.Hour, now.Add(-2*time.Hour))), jwtx.ErrExpired},
		{"not yet valid", sign(accessSigner, jwtx.NewClaims("u", "e", "user", exampleIssuer, time.Hour, now.Add(time.Hour))), jwtx.ErrNotYetValid},
		{"wrong issuer", sign(accessSigner, jwtx.NewClaims("u", "e", "user", "someone-else", time.Minute, now)), jwtx.ErrIssuer},
		{"missing subject", sign(accessSigner, jwtx.NewClaims("", "e", "user", exampleIssuer, time.Minute, now)), jwtx.ErrInvalidClaim},
		{"jti not a ulid", sign(accessSigner, opaqueJTI), jwtx.ErrInvalidClaim},
		{"wrong algorithm", hs512Token, jwtx.ErrInvalidSig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := accessVerifier.Verify(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHMACVerify_Leeway(t *testing.T) {
	signer, _ := newPair(t, "access", accessSecret)
	verifier, err := jwtx.NewHMACVerifier("access", accessSecret, jwtx.VerifyOptions{
		Issuer: exampleIssuer,
		Leeway: time.Minute,
	})
	require.NoError(t, err)

	tok, err := signer.Sign(jwtx.NewClaims("u", "e", "user", exampleIssuer, time.Hour, time.Now().Add(-time.Hour-10*time.Second)))
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	require.NoError(t, err)
}

func TestHMACVerify_InjectedClock(t *testing.T) {
	signer, _ := newPair(t, "refresh", refreshSecret)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, err := signer.Sign(jwtx.NewClaims("u", "e", "admin", exampleIssuer, time.Hour, issued))
	require.NoError(t, err)

	at := issued.Add(30 * time.Minute)
	verifier, err := jwtx.NewHMACVerifier("refresh", refreshSecret, jwtx.VerifyOptions{
		Now: func() time.Time { return at },
	})
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	require.NoError(t, err)

	at = issued.Add(2 * time.Hour)
	_, err = verifier.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestNewHMAC_RejectsWeakSecrets(t *testing.T) {
	_, err := jwtx.NewHMACSigner("access", nil)
	require.ErrorIs(t, err, jwtx.ErrEmptySecret)

	_, err = jwtx.NewHMACSigner("access", []byte("short"))
	require.ErrorIs(t, err, jwtx.ErrShortSecret)

	_, err = jwtx.NewHMACVerifier("access", []byte{}, jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrEmptySecret)
}
