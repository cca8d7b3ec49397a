package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// DefaultOTPTTL is how long an emailed code stays valid.
const DefaultOTPTTL = 5 * time.Minute

// Code range. Codes are never zero-padded, so there are exactly 9000.
const (
	otpMin = 1000
	otpMax = 9999
)

// Mailer delivers a sign-in code to an address. expiresIn is human text
// such as "5 minutes".
type Mailer interface {
	Send(ctx context.Context, to, code, expiresIn string) error
}

// OTPIssuer issues and checks emailed one-time codes.
type OTPIssuer struct {
	Store  store.Store
	Mailer Mailer
	TTL    time.Duration
	Now    func() time.Time

	// Generate overrides code generation in tests.
	Generate func() (string, error)
}

func (o *OTPIssuer) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *OTPIssuer) ttl() time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	return DefaultOTPTTL
}

// NewOTPCode draws a code uniformly from [1000, 9999].
func NewOTPCode() (string, error) {
	n, err := cryptox.RandomIntInclusive(otpMin, otpMax)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// Issue stores a fresh code for p, replacing any pending one, and mails it.
// A mailer failure is returned as ErrDelivery and fails the attempt.
func (o *OTPIssuer) Issue(ctx context.Context, p domain.Principal) (string, error) {
	gen := o.Generate
	if gen == nil {
		gen = NewOTPCode
	}
	code, err := gen()
	if err != nil {
		return "", internalErr("otp.generate", err)
	}

	expiresAt := o.now().Add(o.ttl()).UTC()
	if err := o.Store.Principals().SetOTP(ctx, p.ID, code, expiresAt); err != nil {
		return "", internalErr("otp.persist", err)
	}

	if err := o.Mailer.Send(ctx, p.Email, code, humanDuration(o.ttl())); err != nil {
		slogx.FromContext(ctx).Error("failed to deliver sign-in code",
			slog.String("principal_id", p.ID),
			slog.Any("error", err),
		)
		return "", deliveryErr("otp.send", err)
	}
	return code, nil
}

// Verify checks candidate against the code pending for p and consumes it on
// success. Missing, mismatched and expired codes all return ErrInvalidOTP.
func (o *OTPIssuer) Verify(ctx context.Context, p domain.Principal, candidate string) error {
	if !p.HasPendingOTP() {
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(*p.OTP), []byte(candidate)) != 1 {
		return ErrInvalidOTP
	}
	if o.now().After(*p.OTPExpiresAt) {
		return ErrInvalidOTP
	}

	ok, err := o.Store.Principals().ConsumeOTP(ctx, p.ID, candidate)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOTP
		}
		return internalErr("otp.consume", err)
	}
	if !ok {
		// replaced by a newer sign-in between the read and the update
		return ErrInvalidOTP
	}
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	case d%time.Second == 0:
		return plural(int(d/time.Second), "second")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
