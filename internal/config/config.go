package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// GatewayCredentials identifies the merchant account at the payment gateway.
// It is built once at startup and injected into every component that talks to
// the gateway; nothing else reads the WALLEE_* environment variables.
type GatewayCredentials struct {
	SpaceID    int64
	UserID     int64
	Secret     string
	TerminalID string
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	Wallee        GatewayCredentials
	WalleeBaseURL string

	DefaultCurrency string
	PropertyHeader  string

	GatewayTimeout  time.Duration
	TerminalTimeout time.Duration
	TerminalLockTTL time.Duration
	IdempotencyTTL  time.Duration

	WebhookMaxBodyBytes int64
	MigrationsDir       string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Wallee: GatewayCredentials{
			SpaceID:    parseInt64(k.String("WALLEE_MERCHANT_SPACE_ID")),
			UserID:     parseInt64(k.String("WALLEE_MERCHANT_USER_ID")),
			Secret:     strings.TrimSpace(k.String("WALLEE_MERCHANT_SECRET")),
			TerminalID: strings.TrimSpace(k.String("WALLEE_TERMINAL")),
		},
		WalleeBaseURL:       valueOrDefault(k.String("WALLEE_BASE_URL"), "https://app-wallee.com"),
		DefaultCurrency:     valueOrDefault(k.String("PAYMENT_DEFAULT_CURRENCY"), "CHF"),
		PropertyHeader:      valueOrDefault(k.String("PROPERTY_SCOPE_HEADER"), "X-Property-ID"),
		GatewayTimeout:      parseDuration(k.String("GATEWAY_TIMEOUT"), "15s"),
		TerminalTimeout:     parseDuration(k.String("GATEWAY_TERMINAL_TIMEOUT"), "120s"),
		TerminalLockTTL:     parseDuration(k.String("TERMINAL_LOCK_TTL"), "150s"),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		WebhookMaxBodyBytes: parseInt64WithDefault(k.String("WEBHOOK_MAX_BODY_BYTES"), 1<<20),
		MigrationsDir:       valueOrDefault(k.String("MIGRATIONS_DIR"), "db/migrations"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.Wallee.SpaceID == 0 {
		return nil, errors.New("WALLEE_MERCHANT_SPACE_ID is required")
	}
	if cfg.Wallee.UserID == 0 {
		return nil, errors.New("WALLEE_MERCHANT_USER_ID is required")
	}
	if cfg.Wallee.Secret == "" {
		return nil, errors.New("WALLEE_MERCHANT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt64(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseInt64WithDefault(value string, fallback int64) int64 {
	if n := parseInt64(value); n > 0 {
		return n
	}
	return fallback
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
