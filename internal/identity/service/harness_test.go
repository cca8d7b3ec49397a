package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/internal/identity/store/drivers/sqlite"
)

var (
	accessSecret  = []byte("access-secret-0123456789abcdef")
	refreshSecret = []byte("refresh-secret-0123456789abcdef")
)

type sentMail struct {
	To, Code, ExpiresIn string
}

// fakeMailer records every message and fails when err is set.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, code, expiresIn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Code: code, ExpiresIn: expiresIn})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	return f.sent[len(f.sent)-1]
}

// clock is a settable time source shared by the token service and OTP issuer.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store    store.Store
	tokens   *service.TokenService
	mailer   *fakeMailer
	clock    *clock
	sessions *service.SessionManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	tokens, err := service.NewTokenService(service.TokenConfig{
		Issuer:        "identity-test",
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Now:           clk.Now,
	})
	require.NoError(t, err)

	mailer := &fakeMailer{}
	return &harness{
		store:  st,
		tokens: tokens,
		mailer: mailer,
		clock:  clk,
		sessions: &service.SessionManager{
			Store:  st,
			Tokens: tokens,
			OTP: &service.OTPIssuer{
				Store:  st,
				Mailer: mailer,
				Now:    clk.Now,
			},
		},
	}
}

func (h *harness) principal(t *testing.T, email, password string, role domain.Role) domain.PrincipalView {
	t.Helper()
	v, err := service.CreatePrincipal(context.Background(), h.store, service.NewPrincipal{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      role,
	})
	require.NoError(t, err)
	return v
}

func (h *harness) load(t *testing.T, id string) domain.Principal {
	t.Helper()
	p, err := h.store.Principals().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// failingStore returns err from every principals call.
type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Principals() store.Principals { return failingPrincipals{err: f.err} }

type failingPrincipals struct {
	store.Principals
	err error
}

func (f failingPrincipals) GetByID(context.Context, string) (domain.Principal, error) {
	return domain.Principal{}, f.err
}

func (f failingPrincipals) GetByEmail(context.Context, string) (domain.Principal, error) {
	return domain.Principal{}, f.err
}

func (f failingPrincipals) ClearExpiredOTPs(context.Context, time.Time) (int64, error) {
	return 0, f.err
}

var errDiskGone = errors.New("disk gone")
