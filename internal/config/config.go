package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable overriding the config path.
const EnvConfigPath = "CONFIG_PATH"

// ErrMissingDatabaseDSN indicates no database DSN is configured.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` in config file or DB_CONNECTION)")

// ErrMissingSigningSecret indicates no token signing secret is configured.
var ErrMissingSigningSecret = errors.New("missing signing secret (set `auth.signing-secret` in config file or AUTH_SIGNING_SECRET)")

// AuthConfig holds the tunables of the identity core. None of these are
// hard-coded elsewhere; constructors receive them explicitly.
type AuthConfig struct {
	SigningSecret        string        `yaml:"signing-secret" env:"SIGNING_SECRET"`           // HMAC secret for MFA exchange tokens.
	MFATokenTTL          time.Duration `yaml:"mfa-token-ttl" env:"MFA_TOKEN_TTL"`             // Validity of an MFA exchange token.
	SudoWindow           time.Duration `yaml:"sudo-window" env:"SUDO_WINDOW"`                 // Elevation validity after sudo entry.
	ActivationCodeLength int           `yaml:"activation-code-length" env:"ACTIVATION_CODE_LENGTH"` // Digits in an activation code.
	ActivationTries      int           `yaml:"activation-tries" env:"ACTIVATION_TRIES"`       // Wrong-code budget per activation record.
	SessionTTL           time.Duration `yaml:"session-ttl" env:"SESSION_TTL"`                 // Browser session lifetime.
	CookieTokenTTL       time.Duration `yaml:"cookie-token-ttl" env:"COOKIE_TOKEN_TTL"`       // Cross-channel token lifetime.
	DisableRegistration  bool          `yaml:"disable-registration" env:"DISABLE_REGISTRATION"` // Closes public signup.
}

// RateLimitConfig holds per-route admission budgets and the optional
// Redis backend settings.
type RateLimitConfig struct {
	LoginPerMinute          int    `yaml:"login-per-minute" env:"LOGIN_PER_MINUTE"`
	ForgotPasswordPerMinute int    `yaml:"forgot-password-per-minute" env:"FORGOT_PASSWORD_PER_MINUTE"`
	CookieTokenPerMinute    int    `yaml:"cookie-token-per-minute" env:"COOKIE_TOKEN_PER_MINUTE"`
	RedisEnabled            bool   `yaml:"redis-enabled" env:"REDIS_ENABLED"`
	RedisAddr               string `yaml:"redis-addr" env:"REDIS_ADDR"`
	RedisPassword           string `yaml:"redis-password" env:"REDIS_PASSWORD"`
	RedisDB                 int    `yaml:"redis-db" env:"REDIS_DB"`
	RedisPrefix             string `yaml:"redis-prefix" env:"REDIS_PREFIX"`
}

// Config is the resolved application configuration.
type Config struct {
	Host        string          `yaml:"host" env:"HOST"`
	Port        int             `yaml:"port" env:"PORT"`
	DatabaseDSN string          `yaml:"database-dsn" env:"DB_CONNECTION"`
	Debug       bool            `yaml:"debug" env:"DEBUG"`
	Auth        AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	RateLimit   RateLimitConfig `yaml:"rate-limit" envPrefix:"RATE_LIMIT_"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Port: 8318,
		Auth: AuthConfig{
			MFATokenTTL:          10 * time.Minute,
			SudoWindow:           5 * time.Minute,
			ActivationCodeLength: 6,
			ActivationTries:      6,
			SessionTTL:           30 * 24 * time.Hour,
			CookieTokenTTL:       5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute:          10,
			ForgotPasswordPerMinute: 2,
			CookieTokenPerMinute:    5,
			RedisPrefix:             "maskbox:rl",
		},
	}
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads configuration in three layers: defaults, the YAML file (when
// present), then environment variable overrides.
func Load(configPath string) (Config, error) {
	cfg := Default()

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	if errEnv := env.Parse(&cfg); errEnv != nil {
		return Config{}, fmt.Errorf("parse env config: %w", errEnv)
	}

	if errValidate := cfg.validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return ErrMissingDatabaseDSN
	}
	if strings.TrimSpace(c.Auth.SigningSecret) == "" {
		return ErrMissingSigningSecret
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Auth.ActivationCodeLength <= 0 {
		return fmt.Errorf("invalid activation code length: %d", c.Auth.ActivationCodeLength)
	}
	if c.Auth.ActivationTries <= 0 {
		return fmt.Errorf("invalid activation tries: %d", c.Auth.ActivationTries)
	}
	if c.Auth.SudoWindow <= 0 {
		return fmt.Errorf("invalid sudo window: %s", c.Auth.SudoWindow)
	}
	if c.Auth.MFATokenTTL <= 0 {
		return fmt.Errorf("invalid mfa token ttl: %s", c.Auth.MFATokenTTL)
	}
	return nil
}
