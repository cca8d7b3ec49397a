package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/identity/pkg/idx"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seed(t *testing.T, s store.Store, email string, role domain.Role) domain.Principal {
	t.Helper()
	p := domain.Principal{
		ID:           idx.New().String(),
		Email:        email,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: "hash",
		Role:         role,
	}
	require.NoError(t, s.Principals().Create(context.Background(), p))
	return p
}

func TestPrincipals_CreateAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := seed(t, s, "Ada@Example.com", domain.RoleElevated)

	got, err := s.Principals().GetByEmail(ctx, "  ada@EXAMPLE.com")
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, "ada@example.com", got.Email)
	require.Equal(t, domain.RoleElevated, got.Role)
	require.Equal(t, "Lovelace", got.LastName)
	require.Nil(t, got.RefreshToken)
	require.Nil(t, got.OTP)
	require.False(t, got.CreatedAt.IsZero())

	byID, err := s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, got, byID)

	_, err = s.Principals().GetByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Principals().GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrincipals_DuplicateEmail(t *testing.T) {
	s := newStore(t)
	seed(t, s, "dup@example.com", domain.RoleStandard)

	err := s.Principals().Create(context.Background(), domain.Principal{
		ID: idx.New().String(), Email: "DUP@example.com", PasswordHash: "h", Role: domain.RoleStandard,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestPrincipals_RejectsUnknownRole(t *testing.T) {
	s := newStore(t)
	err := s.Principals().Create(context.Background(), domain.Principal{
		ID: idx.New().String(), Email: "r@example.com", PasswordHash: "h", Role: "root",
	})
	require.Error(t, err)
}

func TestPrincipals_RefreshToken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := seed(t, s, "rt@example.com", domain.RoleStandard)

	token := "refresh-1"
	require.NoError(t, s.Principals().SetRefreshToken(ctx, p.ID, &token))
	got, err := s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, token, *got.RefreshToken)

	require.NoError(t, s.Principals().SetRefreshToken(ctx, p.ID, nil))
	got, err = s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.RefreshToken)

	require.ErrorIs(t, s.Principals().SetRefreshToken(ctx, "missing", &token), store.ErrNotFound)
}

func TestPrincipals_OTPLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := seed(t, s, "otp@example.com", domain.RoleElevated)
	exp := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Microsecond)

	require.NoError(t, s.Principals().SetOTP(ctx, p.ID, "1234", exp))
	got, err := s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.HasPendingOTP())
	require.Equal(t, "1234", *got.OTP)
	require.WithinDuration(t, exp, *got.OTPExpiresAt, time.Millisecond)

	// A newer code replaces the older one, so consuming the old code fails.
	require.NoError(t, s.Principals().SetOTP(ctx, p.ID, "5678", exp))
	ok, err := s.Principals().ConsumeOTP(ctx, p.ID, "1234")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Principals().ConsumeOTP(ctx, p.ID, "5678")
	require.NoError(t, err)
	require.True(t, ok)

	got, err = s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.OTP)
	require.Nil(t, got.OTPExpiresAt)

	ok, err = s.Principals().ConsumeOTP(ctx, p.ID, "5678")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, s.Principals().SetOTP(ctx, "missing", "1111", exp), store.ErrNotFound)
}

func TestPrincipals_ClearExpiredOTPs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := seed(t, s, "stale@example.com", domain.RoleElevated)
	fresh := seed(t, s, "fresh@example.com", domain.RoleElevated)
	seed(t, s, "none@example.com", domain.RoleStandard)

	require.NoError(t, s.Principals().SetOTP(ctx, stale.ID, "1111", now.Add(-time.Minute)))
	require.NoError(t, s.Principals().SetOTP(ctx, fresh.ID, "2222", now.Add(time.Minute)))

	n, err := s.Principals().ClearExpiredOTPs(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := s.Principals().GetByID(ctx, stale.ID)
	require.NoError(t, err)
	require.False(t, got.HasPendingOTP())

	got, err = s.Principals().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.True(t, got.HasPendingOTP())
}

func TestWithTx(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	p := seed(t, s, "tx@example.com", domain.RoleStandard)
	token := "in-tx"

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		require.NoError(t, tx.Principals().SetRefreshToken(ctx, p.ID, &token))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.RefreshToken, "rolled back")

	require.NoError(t, s.WithTx(ctx, func(tx store.Store) error {
		require.Error(t, tx.WithTx(ctx, func(store.Store) error { return nil }), "no nesting")
		return tx.Principals().SetRefreshToken(ctx, p.ID, &token)
	}))
	got, err = s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, token, *got.RefreshToken)
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")
	ctx := context.Background()

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	p := seed(t, s, "disk@example.com", domain.RoleStaff)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	s, err = sqlite.NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations())

	got, err := s.Principals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleStaff, got.Role)
}
