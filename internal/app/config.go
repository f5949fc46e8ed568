package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/authhelper/internal/credstore"
	"github.com/florianilch/authhelper/internal/interceptor"
	"github.com/florianilch/authhelper/internal/observability"
	"github.com/florianilch/authhelper/internal/session"
	"github.com/florianilch/authhelper/internal/view"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// StoreType represents the different backends supported for stored credentials.
type StoreType string

const (
	StoreTypeFile    StoreType = "file"
	StoreTypeEnv     StoreType = "env"
	StoreTypeKeyring StoreType = "keyring"
	StoreTypeMemory  StoreType = "memory"
)

// Default configuration values
const (
	DefaultConfigLogFormat         = LogFormatText
	DefaultConfigTelemetryExporter = observability.ExporterNone
	DefaultConfigServerHost        = "127.0.0.1"
	DefaultConfigServerPort        = 4100
	DefaultConfigShutdownTimeout   = 5 * time.Second
	DefaultConfigUpstreamBaseURL   = "http://localhost:8080"
	DefaultConfigStoreType         = StoreTypeFile
	DefaultConfigStoreEnvPrefix    = "AUTHHELPER_CRED_"
	DefaultConfigKeyringService    = "authhelper"
)

// TelemetryConfig selects where log records are exported.
type TelemetryConfig struct {
	Exporter string `json:"exporter" validate:"oneof=none stdout otlp-http otlp-grpc"`
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
}

// ServerConfig holds gateway listener configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// UpstreamConfig holds the web application configuration.
type UpstreamConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
}

// StoreConfig describes how to construct the credential store.
type StoreConfig struct {
	Type StoreType `json:"type" validate:"required,oneof=file env keyring memory"`

	// Backend-specific settings (only the one matching Type is used)
	File           string `json:"file,omitempty"`            // For file storage: path to credential file
	EnvPrefix      string `json:"env_prefix,omitempty"`      // For env storage: variable name prefix
	KeyringService string `json:"keyring_service,omitempty"` // For keyring storage: service name
	KeyringUser    string `json:"keyring_user,omitempty"`    // For keyring storage: user identifier
}

// NewStore creates a credstore.Store from the store configuration.
func (s *StoreConfig) NewStore() (credstore.Store, error) {
	switch s.Type {
	case StoreTypeFile:
		return credstore.NewFileStore(s.File)
	case StoreTypeEnv:
		return credstore.NewEnvStore(s.EnvPrefix)
	case StoreTypeKeyring:
		return credstore.NewKeyringStore(s.KeyringService, s.KeyringUser)
	case StoreTypeMemory:
		return credstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", s.Type)
	}
}

// PathsConfig holds the URL paths the session works with.
type PathsConfig struct {
	Login        string `json:"login" validate:"startswith=/"`
	Logout       string `json:"logout" validate:"startswith=/"`
	APIMarker    string `json:"api_marker" validate:"required"`
	AuthLogin    string `json:"auth_login" validate:"startswith=/"`
	AuthRegister string `json:"auth_register" validate:"startswith=/"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level      `json:"log_level"`
	LogFormat LogFormat       `json:"log_format" validate:"oneof=text json"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Server    ServerConfig    `json:"server"`
	Shutdown  ShutdownConfig  `json:"shutdown"`
	Upstream  UpstreamConfig  `json:"upstream"`
	Store     StoreConfig     `json:"store"`
	Paths     PathsConfig     `json:"paths"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = DefaultConfigTelemetryExporter
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultConfigUpstreamBaseURL
	}
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Store.Type == "" {
		c.Store.Type = DefaultConfigStoreType
	}

	if c.Paths.Login == "" {
		c.Paths.Login = session.DefaultLoginPath
	}
	if c.Paths.Logout == "" {
		c.Paths.Logout = view.DefaultLogoutPath
	}
	if c.Paths.APIMarker == "" {
		c.Paths.APIMarker = interceptor.DefaultAPIMarker
	}
	if c.Paths.AuthLogin == "" {
		c.Paths.AuthLogin = session.DefaultAuthLoginPath
	}
	if c.Paths.AuthRegister == "" {
		c.Paths.AuthRegister = session.DefaultAuthRegisterPath
	}

	// Dynamic defaults based on store type
	switch c.Store.Type {
	case StoreTypeFile:
		if c.Store.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("store.file required (auto-detect failed: %w)", err)
			}
			c.Store.File = filepath.Join(configDir, "authhelper", "credentials.json")
		}
	case StoreTypeEnv:
		if c.Store.EnvPrefix == "" {
			c.Store.EnvPrefix = DefaultConfigStoreEnvPrefix
		}
	case StoreTypeKeyring:
		if c.Store.KeyringService == "" {
			c.Store.KeyringService = DefaultConfigKeyringService
		}
		if c.Store.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("store.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Store.KeyringUser = currentUser.Username
		}
	case StoreTypeMemory:
		// nothing to configure
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Store.Type {
	case StoreTypeFile:
		if c.Store.File == "" {
			return errors.New("file path required for file store")
		}
	case StoreTypeEnv:
		if c.Store.EnvPrefix == "" {
			return errors.New("env_prefix required for env store")
		}
	case StoreTypeKeyring:
		if c.Store.KeyringService == "" || c.Store.KeyringUser == "" {
			return errors.New("keyring_service and keyring_user required for keyring store")
		}
	}

	// Gateway, CLI and auth client all address the upstream root
	upstream, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid upstream base_url: %w", err)
	}
	if upstream.Path != "" || upstream.RawQuery != "" {
		return fmt.Errorf("upstream base_url %q must not carry a path or query", c.Upstream.BaseURL)
	}

	if c.Paths.Login == c.Paths.Logout {
		return errors.New("login and logout paths must differ")
	}

	return nil
}

// Writable reports whether logins can be persisted with this configuration.
func (c *Config) Writable() bool {
	return c.Store.Type != StoreTypeEnv
}
