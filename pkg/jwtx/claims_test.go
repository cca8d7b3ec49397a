package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/identity/pkg/idx"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "identity",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("identity"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("billing-service"), jwtx.ErrIssuer)
	})
}

func TestNewClaims(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := jwtx.NewClaims("01JPRINCIPAL", "a@x.io", "admin", "identity", 15*time.Minute, now)

	require.Equal(t, "01JPRINCIPAL", c.Subject)
	require.Equal(t, "a@x.io", c.Email)
	require.Equal(t, "admin", c.Role)
	require.Equal(t, now.Add(15*time.Minute), c.ExpiresAt.Time)
	require.Equal(t, now, c.IssuedAt.Time)
	_, err := idx.Parse(c.ID)
	require.NoError(t, err, "jti is a ulid")

	other := jwtx.NewClaims("01JPRINCIPAL", "a@x.io", "admin", "identity", 15*time.Minute, now)
	require.NotEqual(t, c.ID, other.ID, "jti must differ between mints")
}
