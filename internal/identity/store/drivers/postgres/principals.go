package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/store"
)

type principalsRepo struct {
	q querier
}

func (r *principalsRepo) GetByID(ctx context.Context, id string) (domain.Principal, error) {
	p, err := scanPrincipal(r.q.QueryRow(ctx,
		`SELECT `+principalColumns+`
		 FROM principals
		 WHERE id = $1`, id))
	if err != nil {
		return domain.Principal{}, mapErr(err, "get principal by id")
	}
	return p, nil
}

func (r *principalsRepo) GetByEmail(ctx context.Context, email string) (domain.Principal, error) {
	p, err := scanPrincipal(r.q.QueryRow(ctx,
		`SELECT `+principalColumns+`
		 FROM principals
		 WHERE email = $1`, domain.NormalizeEmail(email)))
	if err != nil {
		return domain.Principal{}, mapErr(err, "get principal by email")
	}
	return p, nil
}

func (r *principalsRepo) Create(ctx context.Context, p domain.Principal) error {
	now := nowUTC()
	_, err := r.q.Exec(ctx,
		`INSERT INTO principals (id, email, first_name, last_name, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, domain.NormalizeEmail(p.Email), p.FirstName, p.LastName, p.PasswordHash, string(p.Role), now, now)
	if err != nil {
		return mapErr(err, "create principal")
	}
	return nil
}

func (r *principalsRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE principals SET refresh_token = $1, updated_at = $2 WHERE id = $3`,
		token, nowUTC(), id)
	if err != nil {
		return mapErr(err, "set refresh token")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *principalsRepo) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE principals SET otp = $1, otp_expires_at = $2, updated_at = $3 WHERE id = $4`,
		code, expiresAt.UTC(), nowUTC(), id)
	if err != nil {
		return mapErr(err, "set otp")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *principalsRepo) ConsumeOTP(ctx context.Context, id, code string) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE principals SET otp = NULL, otp_expires_at = NULL, updated_at = $1 WHERE id = $2 AND otp = $3`,
		nowUTC(), id, code)
	if err != nil {
		return false, mapErr(err, "consume otp")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *principalsRepo) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE principals SET otp = NULL, otp_expires_at = NULL, updated_at = $1
		 WHERE otp_expires_at IS NOT NULL AND otp_expires_at < $2`,
		nowUTC(), now.UTC())
	if err != nil {
		return 0, mapErr(err, "clear expired otps")
	}
	return tag.RowsAffected(), nil
}
