package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/identity/internal/identity/app"
	"github.com/aussiebroadwan/identity/internal/identity/domain"
)

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.BindFlags(fs)
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IDENTITY_ACCESS_SECRET", "from-env-access-secret")
	fs := newFlags(t)

	cfg, err := app.LoadConfig(fs, "")
	require.NoError(t, err)
	require.Equal(t, "identity", cfg.Issuer)
	require.Equal(t, "from-env-access-secret", cfg.AccessSecret)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL)
	require.Equal(t, []string{"admin"}, cfg.SecondFactorRoles)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, "log", cfg.Mailer)
	require.Equal(t, 8080, cfg.Port)
	require.False(t, cfg.RotateRefreshTokens)
}

func TestLoadConfigLayering(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("IDENTITY_ISSUER", "env-issuer")

	path := filepath.Join(t.TempDir(), "identity.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
issuer: file-issuer
access_ttl: 30m
second_factor_roles: [staff, admin]
mailer: smtp
smtp:
  host: smtp.example.com
  port: 2525
`), 0o600))

	fs := newFlags(t)
	require.NoError(t, fs.Parse([]string{"--access_ttl=1h", "--rotate_refresh_tokens"}))

	cfg, err := app.LoadConfig(fs, path)
	require.NoError(t, err)
	require.Equal(t, "file-issuer", cfg.Issuer)
	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 9000, cfg.Port)
	require.True(t, cfg.RotateRefreshTokens)
	require.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	require.Equal(t, 2525, cfg.SMTP.Port)

	roles, err := cfg.Roles()
	require.NoError(t, err)
	require.Equal(t, []domain.Role{domain.RoleStaff, domain.RoleElevated}, roles)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := app.LoadConfig(newFlags(t), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func validConfig() app.Config {
	return app.Config{
		Issuer:            "identity",
		AccessSecret:      "access-secret-0123456789",
		RefreshSecret:     "refresh-secret-0123456789",
		AccessTTL:         time.Minute,
		RefreshTTL:        time.Hour,
		OTPTTL:            time.Minute,
		SecondFactorRoles: []string{"admin"},
		StoreDriver:       "sqlite",
		DatabaseFile:      ":memory:",
		Mailer:            "log",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	for name, mutate := range map[string]func(*app.Config){
		"missing secret":  func(c *app.Config) { c.RefreshSecret = "" },
		"same secrets":    func(c *app.Config) { c.RefreshSecret = c.AccessSecret },
		"zero ttl":        func(c *app.Config) { c.AccessTTL = 0 },
		"bad role":        func(c *app.Config) { c.SecondFactorRoles = []string{"root"} },
		"smtp no host":    func(c *app.Config) { c.Mailer = "smtp" },
		"bad mailer":      func(c *app.Config) { c.Mailer = "pigeon" },
		"bad driver":      func(c *app.Config) { c.StoreDriver = "mysql" },
		"postgres no url": func(c *app.Config) { c.StoreDriver = "postgres" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
