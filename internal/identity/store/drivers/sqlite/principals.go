package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/internal/identity/store/drivers/sqlite/gen"
)

type principalsRepo struct {
	q *gen.Queries
}

func (r *principalsRepo) GetByID(ctx context.Context, id string) (domain.Principal, error) {
	row, err := r.q.GetPrincipalByID(ctx, id)
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return mapPrincipal(row), nil
}

func (r *principalsRepo) GetByEmail(ctx context.Context, email string) (domain.Principal, error) {
	row, err := r.q.GetPrincipalByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.Principal{}, mapNotFound(err)
	}
	return mapPrincipal(row), nil
}

func (r *principalsRepo) Create(ctx context.Context, p domain.Principal) error {
	now := time.Now().UTC()
	err := r.q.CreatePrincipal(ctx, gen.CreatePrincipalParams{
		ID:           p.ID,
		Email:        domain.NormalizeEmail(p.Email),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: p.PasswordHash,
		Role:         string(p.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return mapConstraint(err)
}

func (r *principalsRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	n, err := r.q.SetPrincipalRefreshToken(ctx, gen.SetPrincipalRefreshTokenParams{
		RefreshToken: mapOptionalString(token),
		UpdatedAt:    time.Now().UTC(),
		ID:           id,
	})
	return affected(n, err)
}

func (r *principalsRepo) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	n, err := r.q.SetPrincipalOTP(ctx, gen.SetPrincipalOTPParams{
		Otp:          sql.NullString{String: code, Valid: true},
		OtpExpiresAt: sql.NullTime{Time: expiresAt.UTC(), Valid: true},
		UpdatedAt:    time.Now().UTC(),
		ID:           id,
	})
	return affected(n, err)
}

func (r *principalsRepo) ConsumeOTP(ctx context.Context, id, code string) (bool, error) {
	n, err := r.q.ConsumePrincipalOTP(ctx, gen.ConsumePrincipalOTPParams{
		UpdatedAt: time.Now().UTC(),
		ID:        id,
		Otp:       sql.NullString{String: code, Valid: true},
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *principalsRepo) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	return r.q.ClearExpiredOTPs(ctx, gen.ClearExpiredOTPsParams{
		UpdatedAt:    time.Now().UTC(),
		OtpExpiresAt: sql.NullTime{Time: now.UTC(), Valid: true},
	})
}

// affected turns a zero-row update into ErrNotFound.
func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
