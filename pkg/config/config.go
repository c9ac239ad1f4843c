package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is read when no other path is given.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for ekaya-dbproxy.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database proxy behavior
	Proxy ProxyConfig `yaml:"proxy"`

	// Durable profile state
	State StateConfig `yaml:"state"`

	// Telegram Bot API pass-through
	Telegram TelegramConfig `yaml:"telegram"`

	// Encryption key for connection strings stored in profiles.
	// Any passphrase, or a 32-byte key base64 encoded (openssl rand -base64 32).
	// When empty, profiles are stored unencrypted.
	ProfileCredentialsKey string `yaml:"-" env:"PROFILE_CREDENTIALS_KEY"` // Secret - not in YAML
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// Enabled requires a bearer JWT on every /api route.
	Enabled bool `yaml:"enabled" env:"AUTH_ENABLED" env-default:"false"`

	// HMACSecret verifies HS256 tokens. Secret - not in YAML.
	HMACSecret string `yaml:"-" env:"AUTH_HMAC_SECRET"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// ProxyConfig holds settings for queries sent to user databases.
type ProxyConfig struct {
	// ConnectTimeout bounds connection and server selection for each call.
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"PROXY_CONNECT_TIMEOUT" env-default:"5s"`
	// DocumentLimit caps documents returned from document-store queries.
	DocumentLimit int `yaml:"document_limit" env:"PROXY_DOCUMENT_LIMIT" env-default:"1000"`
}

// StateConfig holds where and how long profile state is kept.
type StateConfig struct {
	// Path of the SQLite file. Defaults to the XDG data directory.
	Path string `yaml:"path" env:"STATE_PATH" env-default:""`
	// RecordTTL is how long a persisted record stays valid after its last write.
	RecordTTL time.Duration `yaml:"record_ttl" env:"STATE_RECORD_TTL" env-default:"8760h"`
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	APIBaseURL         string        `yaml:"api_base_url" env:"TELEGRAM_API_BASE_URL" env-default:"https://api.telegram.org"`
	Timeout            time.Duration `yaml:"timeout" env:"TELEGRAM_TIMEOUT" env-default:"30s"`
	DiagnosticsTimeout time.Duration `yaml:"diagnostics_timeout" env:"TELEGRAM_DIAGNOSTICS_TIMEOUT" env-default:"5s"`
}

// Load reads configuration from config.yaml in the working directory (if it
// exists) with environment variable overrides.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom reads configuration from path with environment variable overrides.
// A missing file is not an error; environment variables and defaults apply.
// The version parameter is injected at build time and set on the returned Config.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	// Parse complex fields
	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	// Validate TLS configuration
	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.validateAuth(); err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	// Use HTTPS scheme if TLS is configured
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	c.Auth.JWKSEndpoints = parseJWKSEndpoints(c.Auth.JWKSEndpointsStr)

	if c.State.Path == "" {
		path, err := xdg.DataFile(filepath.Join("ekaya-dbproxy", "state.db"))
		if err != nil {
			return fmt.Errorf("failed to resolve state path: %w", err)
		}
		c.State.Path = path
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist and be readable.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	// Both must be provided together or both empty
	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	// If both provided, verify files exist (actual readability checked by tls.LoadX509KeyPair at startup)
	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// validateAuth ensures enabled auth has a way to verify tokens.
func (c *Config) validateAuth() error {
	if c.Auth.Enabled && c.Auth.HMACSecret == "" && len(c.Auth.JWKSEndpoints) == 0 {
		return fmt.Errorf("auth is enabled but neither AUTH_HMAC_SECRET nor jwks_endpoints is set")
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}
