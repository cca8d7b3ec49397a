package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/metrics"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

var tracer = otel.Tracer("identity/session")

// SessionManager drives sign-in, second factor, refresh and sign-out for a
// principal. Store failures only ever leave it wrapped in ErrInternal.
type SessionManager struct {
	Store   store.Store
	Tokens  *TokenService
	OTP     *OTPIssuer
	Metrics *metrics.Metrics

	// SecondFactorRoles must confirm an emailed code before tokens are
	// issued. Nil means only RoleElevated.
	SecondFactorRoles []domain.Role

	// RotateRefreshTokens mints and stores a new refresh token on every
	// refresh, invalidating the presented one.
	RotateRefreshTokens bool
}

func (m *SessionManager) requiresSecondFactor(r domain.Role) bool {
	roles := m.SecondFactorRoles
	if roles == nil {
		roles = []domain.Role{domain.RoleElevated}
	}
	for _, sf := range roles {
		if sf == r {
			return true
		}
	}
	return false
}

// SignIn checks the password and either issues tokens or, for second
// factor roles, mails a code and returns StateOTPPending.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (res domain.SignInResult, err error) {
	ctx, span := tracer.Start(ctx, "session.SignIn")
	defer func() { m.finish(span, err, m.Metrics.SignIn, res.State) }()

	l := slogx.FromContext(ctx)

	p, err := m.Store.Principals().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnPasswordCheck(password)
			l.Info("sign-in for unknown email")
			return failed(), ErrNotFound
		}
		return failed(), internalErr("signin.lookup", err)
	}
	span.SetAttributes(attribute.String("principal.id", p.ID), attribute.String("principal.role", string(p.Role)))

	if !cryptox.PasswordMatches(password, p.PasswordHash) {
		l.Info("sign-in with wrong password", slog.String("principal_id", p.ID))
		return failed(), ErrInvalidCredentials
	}
	span.AddEvent(domain.StateCredentialsChecked.String())
	l.Debug("sign-in credentials checked",
		slog.String("principal_id", p.ID),
		slog.String("state", domain.StateCredentialsChecked.String()),
	)

	if m.requiresSecondFactor(p.Role) {
		if _, err := m.OTP.Issue(ctx, p); err != nil {
			return failed(), err
		}
		l.Info("sign-in code issued", slog.String("principal_id", p.ID))
		return domain.SignInResult{State: domain.StateOTPPending}, nil
	}

	return m.authenticate(ctx, p)
}

// VerifyOTP completes a pending sign-in. An unknown email is reported the
// same way as a bad code.
func (m *SessionManager) VerifyOTP(ctx context.Context, email, code string) (res domain.SignInResult, err error) {
	ctx, span := tracer.Start(ctx, "session.VerifyOTP")
	defer func() { m.finish(span, err, m.Metrics.OTP, res.State) }()

	p, err := m.Store.Principals().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return failed(), ErrInvalidOTP
		}
		return failed(), internalErr("otp.lookup", err)
	}
	span.SetAttributes(attribute.String("principal.id", p.ID))

	if err := m.OTP.Verify(ctx, p, code); err != nil {
		slogx.FromContext(ctx).Info("sign-in code rejected", slog.String("principal_id", p.ID))
		return failed(), err
	}
	return m.authenticate(ctx, p)
}

// authenticate mints a pair and stores the refresh token. No token leaves
// unless it was persisted.
func (m *SessionManager) authenticate(ctx context.Context, p domain.Principal) (domain.SignInResult, error) {
	pair, err := m.Tokens.MintPair(p)
	if err != nil {
		return failed(), internalErr("tokens.mint", err)
	}
	if err := m.Store.Principals().SetRefreshToken(ctx, p.ID, &pair.RefreshToken); err != nil {
		return failed(), internalErr("tokens.persist", err)
	}

	slogx.FromContext(ctx).Info("principal authenticated", slog.String("principal_id", p.ID))
	view := p.View()
	return domain.SignInResult{State: domain.StateAuthenticated, Tokens: &pair, Principal: &view}, nil
}

// SignOut clears the stored refresh token. Outstanding refresh tokens stop
// working because there is nothing left to compare them with; access
// tokens run until they expire.
func (m *SessionManager) SignOut(ctx context.Context, principalID string) (err error) {
	ctx, span := tracer.Start(ctx, "session.SignOut", trace.WithAttributes(attribute.String("principal.id", principalID)))
	defer func() { m.finish(span, err, nil, domain.StateUnauthenticated) }()

	if _, err := m.Store.Principals().GetByID(ctx, principalID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return internalErr("signout.lookup", err)
	}
	if err := m.Store.Principals().SetRefreshToken(ctx, principalID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return internalErr("signout.clear", err)
	}
	slogx.FromContext(ctx).Info("principal signed out", slog.String("principal_id", principalID))
	return nil
}

// Refresh exchanges a refresh token for a new access token. The token must
// belong to principalID, carry the stored email and equal the stored
// refresh token.
func (m *SessionManager) Refresh(ctx context.Context, principalID, refreshToken string) (tok domain.AccessToken, err error) {
	ctx, span := tracer.Start(ctx, "session.Refresh", trace.WithAttributes(attribute.String("principal.id", principalID)))
	defer func() {
		state := domain.StateAuthenticated
		if err != nil {
			state = domain.StateFailed
		}
		m.finish(span, err, m.Metrics.Refresh, state)
	}()

	l := slogx.FromContext(ctx)

	claims, err := m.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		l.Info("refresh token rejected", slog.Any("reason", err))
		return domain.AccessToken{}, ErrUnauthorized
	}
	if claims.Subject != principalID {
		l.Warn("refresh token subject mismatch", slog.String("principal_id", principalID))
		return domain.AccessToken{}, ErrUnauthorized
	}

	if !m.RotateRefreshTokens {
		p, err := m.bind(ctx, m.Store, claims.Subject, claims.Email, refreshToken)
		if err != nil {
			return domain.AccessToken{}, err
		}
		access, exp, err := m.Tokens.MintAccessToken(p)
		if err != nil {
			return domain.AccessToken{}, internalErr("refresh.mint", err)
		}
		return domain.AccessToken{AccessToken: access, ExpiresAt: exp}, nil
	}

	err = m.Store.WithTx(ctx, func(tx store.Store) error {
		p, err := m.bind(ctx, tx, claims.Subject, claims.Email, refreshToken)
		if err != nil {
			return err
		}
		access, exp, err := m.Tokens.MintAccessToken(p)
		if err != nil {
			return internalErr("refresh.mint", err)
		}
		next, _, err := m.Tokens.MintRefreshToken(p)
		if err != nil {
			return internalErr("refresh.mint", err)
		}
		if err := tx.Principals().SetRefreshToken(ctx, p.ID, &next); err != nil {
			return internalErr("refresh.rotate", err)
		}
		tok = domain.AccessToken{AccessToken: access, RefreshToken: next, ExpiresAt: exp}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrInternal) {
			err = internalErr("refresh.tx", err)
		}
		return domain.AccessToken{}, err
	}
	return tok, nil
}

// bind loads the principal and checks the presented token is the one on
// record for it.
func (m *SessionManager) bind(ctx context.Context, st store.Store, id, email, presented string) (domain.Principal, error) {
	l := slogx.FromContext(ctx)

	p, err := st.Principals().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh for unknown principal", slog.String("principal_id", id))
			return domain.Principal{}, ErrUnauthorized
		}
		return domain.Principal{}, internalErr("refresh.lookup", err)
	}
	if p.Email != domain.NormalizeEmail(email) {
		l.Warn("refresh token email does not match principal", slog.String("principal_id", id))
		return domain.Principal{}, ErrUnauthorized
	}
	if p.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*p.RefreshToken), []byte(presented)) != 1 {
		l.Info("refresh token revoked or superseded", slog.String("principal_id", id))
		return domain.Principal{}, ErrUnauthorized
	}
	return p, nil
}

// Me returns the sanitized view of the principal.
func (m *SessionManager) Me(ctx context.Context, principalID string) (domain.PrincipalView, error) {
	p, err := m.Store.Principals().GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PrincipalView{}, ErrNotFound
		}
		return domain.PrincipalView{}, internalErr("me.lookup", err)
	}
	return p.View(), nil
}

// PrincipalExists lets the authorization guard re-check a token subject.
func (m *SessionManager) PrincipalExists(ctx context.Context, principalID string) (bool, error) {
	_, err := m.Store.Principals().GetByID(ctx, principalID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, internalErr("guard.lookup", err)
	}
}

// VerifyAccessToken exposes the token check to the authorization guard.
func (m *SessionManager) VerifyAccessToken(tok string) (jwtx.Claims, error) {
	return m.Tokens.VerifyAccessToken(tok)
}

func failed() domain.SignInResult {
	return domain.SignInResult{State: domain.StateFailed}
}

// finish closes span and counts the outcome.
func (m *SessionManager) finish(span trace.Span, err error, count func(string), state domain.SessionState) {
	outcome := outcomeOf(err, state)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		if errors.Is(err, ErrInternal) {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}
	if count != nil {
		count(outcome)
	}
	span.End()
}

func outcomeOf(err error, state domain.SessionState) string {
	switch {
	case err == nil:
		return state.String()
	case errors.Is(err, ErrDelivery):
		return "delivery_failed"
	case errors.Is(err, ErrInternal):
		return "internal_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidOTP):
		return "invalid_otp"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "failed"
	}
}
