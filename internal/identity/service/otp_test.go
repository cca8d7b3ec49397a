package service_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/service"
)

func TestNewOTPCodeRange(t *testing.T) {
	for range 2000 {
		code, err := service.NewOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 4)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1000)
		require.LessOrEqual(t, n, 9999)
	}
}

func TestOTPIssuerCustomTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.principal(t, "a@x.com", "secret123", domain.RoleElevated)

	issuer := &service.OTPIssuer{Store: h.store, Mailer: h.mailer, TTL: time.Hour, Now: h.clock.Now}
	p := h.load(t, v.ID)
	code, err := issuer.Issue(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "1 hour", h.mailer.last(t).ExpiresIn)

	p = h.load(t, v.ID)
	h.clock.Advance(59 * time.Minute)
	require.NoError(t, issuer.Verify(ctx, p, code))
	require.False(t, h.load(t, v.ID).HasPendingOTP())
}

func TestOTPVerifyLosesRaceWithNewCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.principal(t, "a@x.com", "secret123", domain.RoleElevated)
	issuer := h.sessions.OTP

	code, err := issuer.Issue(ctx, h.load(t, v.ID))
	require.NoError(t, err)
	stale := h.load(t, v.ID)

	// a second sign-in replaces the code between read and consume
	issuer.Generate = func() (string, error) {
		if code == "4321" {
			return "1234", nil
		}
		return "4321", nil
	}
	_, err = issuer.Issue(ctx, stale)
	require.NoError(t, err)

	require.ErrorIs(t, issuer.Verify(ctx, stale, code), service.ErrInvalidOTP)
	require.True(t, h.load(t, v.ID).HasPendingOTP())
}
