package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/idx"
)

// MinPasswordLength applies to principals created here.
const MinPasswordLength = 8

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailRegistered = errors.New("email already registered")
)

// NewPrincipal is the input to CreatePrincipal.
type NewPrincipal struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// CreatePrincipal hashes the password and stores a new principal. An empty
// role means RoleStandard.
func CreatePrincipal(ctx context.Context, st store.Store, in NewPrincipal) (domain.PrincipalView, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return domain.PrincipalView{}, ErrInvalidEmail
	}
	if len(in.Password) < MinPasswordLength {
		return domain.PrincipalView{}, ErrWeakPassword
	}
	role := in.Role
	if role == "" {
		role = domain.RoleStandard
	}
	if !role.Valid() {
		return domain.PrincipalView{}, fmt.Errorf("unknown role %q", role)
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.PrincipalView{}, internalErr("principal.hash", err)
	}

	p := domain.Principal{
		ID:           idx.New().String(),
		Email:        domain.NormalizeEmail(addr.Address),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         role,
	}
	if err := st.Principals().Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.PrincipalView{}, ErrEmailRegistered
		}
		return domain.PrincipalView{}, internalErr("principal.create", err)
	}
	return p.View(), nil
}
