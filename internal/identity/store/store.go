package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so that a
// Tx-scoped Store hands out Tx-scoped repositories and nobody nests
// transactions by accident.
type Store interface {
	Principals() Principals

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Principals holds one record per principal. It carries no business logic:
// verification, expiry and role policy live in the service layer.
type Principals interface {
	// GetByID returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (domain.Principal, error)

	// GetByEmail looks up by normalized email. Returns ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (domain.Principal, error)

	// Create inserts p (id supplied by the caller). A duplicate email is
	// ErrAlreadyExists.
	Create(ctx context.Context, p domain.Principal) error

	// SetRefreshToken overwrites the stored refresh token; nil clears it.
	SetRefreshToken(ctx context.Context, id string, token *string) error

	// SetOTP overwrites the pending code and its expiry together.
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error

	// ConsumeOTP clears the pending code only if it still equals code, and
	// reports whether it did. A concurrent SetOTP makes it return false.
	ConsumeOTP(ctx context.Context, id, code string) (bool, error)

	// ClearExpiredOTPs clears every code that expired before now and returns
	// how many were cleared.
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}
