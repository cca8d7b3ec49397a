package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/aussiebroadwan/identity/internal/identity/domain"
	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
)

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type Config struct {
	Issuer        string `koanf:"issuer"`         // issuer claim for tokens (default: identity)
	AccessSecret  string `koanf:"access_secret"`  // Required: HS256 secret for access tokens
	RefreshSecret string `koanf:"refresh_secret"` // Required: HS256 secret for refresh tokens, distinct from AccessSecret

	AccessTTL           time.Duration `koanf:"access_ttl"`            // default: 15m
	RefreshTTL          time.Duration `koanf:"refresh_ttl"`           // default: 168h
	OTPTTL              time.Duration `koanf:"otp_ttl"`               // default: 5m
	SecondFactorRoles   []string      `koanf:"second_factor_roles"`   // default: admin
	RotateRefreshTokens bool          `koanf:"rotate_refresh_tokens"` // default: false

	StoreDriver  string `koanf:"store_driver"`  // sqlite or postgres (default: sqlite)
	DatabaseFile string `koanf:"database_file"` // sqlite only (default: ./identity.db)
	DatabaseURL  string `koanf:"database_url"`  // postgres only
	PepperFile   string `koanf:"pepper_file"`   // default: ./pepper

	Mailer string     `koanf:"mailer"` // smtp or log (default: log)
	SMTP   SMTPConfig `koanf:"smtp"`

	Env                  string        `koanf:"env"`        // dev, staging, prod (default: dev)
	LogLevel             string        `koanf:"log_level"`  // default: info
	LogFormat            string        `koanf:"log_format"` // json, text (default: json)
	Port                 int           `koanf:"port"`       // default: 8080
	ShutdownGracePeriod  time.Duration `koanf:"shutdown_grace_period"`
	HousekeepingInterval time.Duration `koanf:"housekeeping_interval"`
	RateLimitScale       float64       `koanf:"rate_limit_scale"` // multiplies every rate limit; 0 keeps defaults
}

// BindFlags registers every config key on fs. Defaults come from the
// environment so the precedence is env < config file < explicit flag.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("issuer", getEnvOrDefault("IDENTITY_ISSUER", "identity"), "issuer claim for tokens")
	fs.String("access_secret", os.Getenv("IDENTITY_ACCESS_SECRET"), "HS256 secret for access tokens")
	fs.String("refresh_secret", os.Getenv("IDENTITY_REFRESH_SECRET"), "HS256 secret for refresh tokens")
	fs.Duration("access_ttl", getEnvDurationOrDefault("IDENTITY_ACCESS_TTL", jwtx.DefaultAccessTokenTTL), "access token lifetime")
	fs.Duration("refresh_ttl", getEnvDurationOrDefault("IDENTITY_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL), "refresh token lifetime")
	fs.Duration("otp_ttl", getEnvDurationOrDefault("IDENTITY_OTP_TTL", service.DefaultOTPTTL), "sign-in code lifetime")
	fs.StringSlice("second_factor_roles", getEnvListOrDefault("IDENTITY_SECOND_FACTOR_ROLES", []string{string(domain.RoleElevated)}), "roles that must confirm an emailed code")
	fs.Bool("rotate_refresh_tokens", getEnvBoolOrDefault("IDENTITY_ROTATE_REFRESH_TOKENS", false), "issue a new refresh token on every refresh")

	fs.String("store_driver", getEnvOrDefault("IDENTITY_STORE_DRIVER", "sqlite"), "credential store: sqlite or postgres")
	fs.String("database_file", getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"), "sqlite database file")
	fs.String("database_url", os.Getenv("IDENTITY_DATABASE_URL"), "postgres connection string")
	fs.String("pepper_file", getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"), "password pepper file, created if missing")

	fs.String("mailer", getEnvOrDefault("IDENTITY_MAILER", "log"), "code delivery: smtp or log")
	fs.String("smtp.host", os.Getenv("SMTP_HOST"), "SMTP relay host")
	fs.Int("smtp.port", getEnvIntOrDefault("SMTP_PORT", 587), "SMTP relay port")
	fs.String("smtp.username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	fs.String("smtp.password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	fs.String("smtp.from", os.Getenv("SMTP_FROM"), "sender address")

	fs.String("env", getEnvOrDefault("ENV", "dev"), "environment (dev, staging, prod)")
	fs.String("log_level", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.String("log_format", getEnvOrDefault("LOG_FORMAT", "json"), "log format (json, text)")
	fs.Int("port", getEnvIntOrDefault("PORT", 8080), "HTTP port")
	fs.Duration("shutdown_grace_period", getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second), "graceful shutdown timeout")
	fs.Duration("housekeeping_interval", getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour), "expired code cleanup interval")
	fs.Float64("rate_limit_scale", getEnvFloatOrDefault("RATE_LIMIT_SCALE", 0), "multiplier for every rate limit")
}

// LoadConfig layers the optional YAML file at path over the flag defaults,
// then applies flags the user actually set.
func LoadConfig(fs *pflag.FlagSet, path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

var (
	ErrMissingSecret = errors.New("access_secret and refresh_secret are required")
	ErrSameSecrets   = errors.New("access_secret and refresh_secret must differ")
)

// Validate checks what the server needs to start. Commands that only touch
// the store call ValidateStore instead.
func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return ErrMissingSecret
	}
	if c.AccessSecret == c.RefreshSecret {
		return ErrSameSecrets
	}
	for name, d := range map[string]time.Duration{
		"access_ttl":  c.AccessTTL,
		"refresh_ttl": c.RefreshTTL,
		"otp_ttl":     c.OTPTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if _, err := c.Roles(); err != nil {
		return err
	}
	switch c.Mailer {
	case "log":
	case "smtp":
		if c.SMTP.Host == "" {
			return errors.New("smtp.host is required when mailer is smtp")
		}
	default:
		return fmt.Errorf("unknown mailer %q", c.Mailer)
	}
	return c.ValidateStore()
}

func (c Config) ValidateStore() error {
	switch c.StoreDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			return errors.New("database_file is required for the sqlite store")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store_driver %q", c.StoreDriver)
	}
	return nil
}

// Roles parses SecondFactorRoles.
func (c Config) Roles() ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(c.SecondFactorRoles))
	for _, name := range c.SecondFactorRoles {
		if strings.TrimSpace(name) == "" {
			continue
		}
		r, err := domain.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("second_factor_roles: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
