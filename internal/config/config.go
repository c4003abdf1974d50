// Package config loads the dashboard configuration from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable keys
const (
	EnvListenAddr        = "STORX_LISTEN_ADDR"
	EnvClientID          = "STORX_CLIENT_ID"
	EnvClientSecret      = "STORX_CLIENT_SECRET"
	EnvRedirectURI       = "STORX_REDIRECT_URI"
	EnvOAuthURL          = "STORX_OAUTH_URL"
	EnvOAuthScopes       = "STORX_OAUTH_SCOPES"
	EnvAuthAPIURL        = "STORX_AUTH_API_URL"
	EnvSessionKey        = "STORX_SESSION_KEY"
	EnvSessionTTL        = "STORX_SESSION_TTL"
	EnvS3Driver          = "STORX_S3_DRIVER"
	EnvS3Region          = "STORX_S3_REGION"
	EnvListConcurrency   = "STORX_LIST_CONCURRENCY"
	EnvDeleteConcurrency = "STORX_DELETE_CONCURRENCY"
	EnvPreviewMaxBytes   = "STORX_PREVIEW_MAX_BYTES"
	EnvCORSOrigins       = "STORX_CORS_ORIGINS"
	EnvLogLevel          = "STORX_LOG_LEVEL"
)

// Defaults
const (
	DefaultListenAddr        = ":8080"
	DefaultAuthAPIURL        = "https://auth.storx.io/v1"
	DefaultSessionTTL        = 24 * time.Hour
	DefaultS3Driver          = DriverMinio
	DefaultS3Region          = "us-east-1"
	DefaultListConcurrency   = 4
	DefaultDeleteConcurrency = 16
	DefaultPreviewMaxBytes   = 10 * 1024 * 1024
	DefaultLogLevel          = "info"
)

// Supported S3 drivers
const (
	DriverMinio = "minio"
	DriverAWS   = "aws"
)

// OAuthConfig holds the StorX OAuth client registration
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	Scopes       []string
}

// Config is the complete server configuration
type Config struct {
	ListenAddr        string
	OAuth             OAuthConfig
	AuthAPIURL        string
	SessionKey        string
	SessionTTL        time.Duration
	S3Driver          string
	S3Region          string
	ListConcurrency   int
	DeleteConcurrency int
	PreviewMaxBytes   int64
	CORSOrigins       []string
	LogLevel          string
}

// ConfigError reports configuration keys that are missing or invalid
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid environment variables: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Load reads .env files (when present) and then the process environment.
// OAuth settings are not required here; the login route validates them so
// the rest of the dashboard can run without them.
func Load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	return FromEnv(os.Getenv)
}

// loadEnvFiles loads .env and then .env.local, the latter overriding
func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}
	return nil
}

// FromEnv builds a Config from a lookup function, applying defaults
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		ListenAddr: getenv(EnvListenAddr),
		OAuth: OAuthConfig{
			ClientID:     strings.TrimSpace(getenv(EnvClientID)),
			ClientSecret: strings.TrimSpace(getenv(EnvClientSecret)),
			RedirectURI:  strings.TrimSpace(getenv(EnvRedirectURI)),
			AuthorizeURL: strings.TrimSpace(getenv(EnvOAuthURL)),
			Scopes:       ParseList(getenv(EnvOAuthScopes)),
		},
		AuthAPIURL:  strings.TrimRight(strings.TrimSpace(getenv(EnvAuthAPIURL)), "/"),
		SessionKey:  getenv(EnvSessionKey),
		S3Driver:    strings.ToLower(strings.TrimSpace(getenv(EnvS3Driver))),
		S3Region:    strings.TrimSpace(getenv(EnvS3Region)),
		CORSOrigins: ParseList(getenv(EnvCORSOrigins)),
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv(EnvLogLevel))),
	}

	cerr := &ConfigError{}

	var err error
	if cfg.SessionTTL, err = parseDuration(getenv(EnvSessionTTL), DefaultSessionTTL); err != nil {
		cerr.Invalid = append(cerr.Invalid, EnvSessionTTL)
	}
	if cfg.ListConcurrency, err = parsePositiveInt(getenv(EnvListConcurrency), DefaultListConcurrency); err != nil {
		cerr.Invalid = append(cerr.Invalid, EnvListConcurrency)
	}
	if cfg.DeleteConcurrency, err = parsePositiveInt(getenv(EnvDeleteConcurrency), DefaultDeleteConcurrency); err != nil {
		cerr.Invalid = append(cerr.Invalid, EnvDeleteConcurrency)
	}
	maxBytes, err := parsePositiveInt(getenv(EnvPreviewMaxBytes), DefaultPreviewMaxBytes)
	if err != nil {
		cerr.Invalid = append(cerr.Invalid, EnvPreviewMaxBytes)
	}
	cfg.PreviewMaxBytes = int64(maxBytes)

	applyDefaults(cfg)

	if cfg.S3Driver != DriverMinio && cfg.S3Driver != DriverAWS {
		cerr.Invalid = append(cerr.Invalid, EnvS3Driver)
	}

	if len(cerr.Invalid) > 0 {
		return nil, cerr
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.AuthAPIURL == "" {
		cfg.AuthAPIURL = DefaultAuthAPIURL
	}
	if cfg.S3Driver == "" {
		cfg.S3Driver = DefaultS3Driver
	}
	if cfg.S3Region == "" {
		cfg.S3Region = DefaultS3Region
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

// Validate checks that every setting needed to start the OAuth flow is present
func (c OAuthConfig) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if c.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if c.RedirectURI == "" {
		missing = append(missing, EnvRedirectURI)
	}
	if c.AuthorizeURL == "" {
		missing = append(missing, EnvOAuthURL)
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// ParseList splits a comma-separated value, trimming and dropping empties
func ParseList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback, fmt.Errorf("invalid duration %q", value)
	}
	return d, nil
}

func parsePositiveInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fallback, fmt.Errorf("invalid positive integer %q", value)
	}
	return n, nil
}
