package service

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Authentication outcomes. Handlers map these to status codes; anything
// wrapping ErrInternal is logged and shown to callers as a server error.
var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidOTP         = errors.New("invalid_or_expired_otp")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")

	// ErrDelivery is an internal failure raised when the code could not be
	// mailed. errors.Is(err, ErrInternal) holds for it too.
	ErrDelivery = errors.New("delivery_failed")
)

// internalErr wraps a store or crypto failure so that errors.Is(err,
// ErrInternal) holds and the log line carries the operation.
func internalErr(op string, err error) error {
	return oops.
		In("identity").
		Code("INTERNAL").
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", ErrInternal, err))
}

func deliveryErr(op string, err error) error {
	return oops.
		In("identity").
		Code("DELIVERY").
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w: %w", ErrInternal, ErrDelivery, err))
}
