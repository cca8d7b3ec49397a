// Package postgres is the PostgreSQL driver for store.Store, built on a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/store"
)

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// poolIface is satisfied by *pgxpool.Pool and by pgxmock's pool.
type poolIface interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	pool poolIface
	dsn  string
}

var _ store.Store = (*Store)(nil)

// NewStore connects a pool to dsn (postgres:// or postgresql:// URL).
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "open pool").Wrap(err)
	}
	return &Store{pool: pool, dsn: dsn}, nil
}

// newWithPool wraps an existing pool; tests pass a pgxmock pool here.
func newWithPool(pool poolIface, dsn string) *Store {
	return &Store{pool: pool, dsn: dsn}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Principals() store.Principals { return &principalsRepo{q: s.pool} }

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.With("operation", "begin tx").Wrap(err)
	}

	// Safe to call after commit.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) Principals() store.Principals   { return &principalsRepo{q: t.tx} }
func (t *txStore) ApplyMigrations() error         { return nil }
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return pgx.ErrTxClosed
}

func mapErr(err error, operation string) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return store.ErrNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
		return store.ErrAlreadyExists
	default:
		return oops.With("operation", operation).Wrap(err)
	}
}

const principalColumns = `id, email, first_name, last_name, password_hash, role, refresh_token, otp, otp_expires_at, created_at, updated_at`

func scanPrincipal(row pgx.Row) (domain.Principal, error) {
	var (
		p    domain.Principal
		role string
	)
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&p.PasswordHash,
		&role,
		&p.RefreshToken,
		&p.OTP,
		&p.OTPExpiresAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Principal{}, err
	}
	p.Role = domain.Role(role)
	if p.OTPExpiresAt != nil {
		t := p.OTPExpiresAt.UTC()
		p.OTPExpiresAt = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func nowUTC() time.Time { return time.Now().UTC() }
