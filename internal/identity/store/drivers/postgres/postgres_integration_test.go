//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/internal/identity/store/drivers/postgres"
	"github.com/aussiebroadwan/identity/pkg/idx"
)

func setupPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("identity_test"),
		tcpostgres.WithUsername("identity"),
		tcpostgres.WithPassword("identity"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := postgres.NewStore(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations(), "migrations are idempotent")
	return s
}

func TestPostgresStore_PrincipalLifecycle(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	repo := s.Principals()

	id := idx.New().String()
	require.NoError(t, repo.Create(ctx, domain.Principal{
		ID: id, Email: "Ada@Example.com", PasswordHash: "hash", Role: domain.RoleElevated,
	}))
	require.ErrorIs(t, repo.Create(ctx, domain.Principal{
		ID: idx.New().String(), Email: "ada@example.com", PasswordHash: "h", Role: domain.RoleStandard,
	}), store.ErrAlreadyExists)

	p, err := repo.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.Equal(t, id, p.ID)
	require.Nil(t, p.RefreshToken)
	require.False(t, p.HasPendingOTP())

	token := "refresh-token"
	require.NoError(t, repo.SetRefreshToken(ctx, id, &token))
	p, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, token, *p.RefreshToken)

	require.NoError(t, repo.SetOTP(ctx, id, "1234", time.Now().Add(-time.Minute)))
	ok, err := repo.ConsumeOTP(ctx, id, "9999")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := repo.ClearExpiredOTPs(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	p, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Nil(t, p.OTP)
	require.Nil(t, p.OTPExpiresAt)

	require.NoError(t, s.WithTx(ctx, func(tx store.Store) error {
		return tx.Principals().SetRefreshToken(ctx, id, nil)
	}))
	p, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Nil(t, p.RefreshToken)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}
