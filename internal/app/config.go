package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/florianilch/proxy-console/internal/observability"
	"github.com/florianilch/proxy-console/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType selects where the credential pair is persisted.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeRedis   TokenStorageType = "redis"
	TokenStorageTypeMemory  TokenStorageType = "memory"
	TokenStorageTypeEnv     TokenStorageType = "env"
)

// Default configuration values
const (
	DefaultConfigLogFormat         = LogFormatText
	DefaultConfigTelemetryExporter = observability.ExporterNone
	DefaultConfigServerHost        = "127.0.0.1"
	DefaultConfigServerPort        = 4000
	DefaultConfigShutdownTimeout   = 5 * time.Second
	DefaultConfigBackendBaseURL    = "http://localhost:8080/api"
	DefaultConfigBackendTimeout    = 30 * time.Second
	DefaultConfigAuthStorage       = TokenStorageTypeFile
	DefaultConfigAuthEnvAccessKey  = "PROXYCONSOLE_ACCESS_TOKEN"
	DefaultConfigAuthEnvRefreshKey = "PROXYCONSOLE_REFRESH_TOKEN"
	DefaultConfigRedisAddr         = "localhost:6379"
	DefaultConfigRedisKey          = "proxy-console:session"
	DefaultConfigPollInterval      = 30 * time.Second

	keyringService = "proxy-console"
)

// TelemetryConfig selects the log export pipeline.
type TelemetryConfig struct {
	Exporter observability.Exporter `json:"exporter" validate:"oneof=none stdout otlp-grpc otlp-http"`
}

// ServerConfig holds settings of the local gateway.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// BackendConfig describes the admin backend.
type BackendConfig struct {
	// BaseURL is the API root; auth endpoints live at {BaseURL}/auth/*.
	BaseURL string `json:"base_url" validate:"required,url"`
	// Timeout bounds every backend call, renewal included.
	Timeout time.Duration `json:"timeout" validate:"gt=0"`
}

// RedisConfig holds settings for redis storage.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db" validate:"gte=0"`
	Key      string `json:"key"`
}

// AuthConfig describes how the credential pair is stored.
type AuthConfig struct {
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file keyring redis memory env"`

	File          string      `json:"file,omitempty"`            // file storage: path to credentials file
	KeyringUser   string      `json:"keyring_user,omitempty"`    // keyring storage: user identifier
	EnvAccessKey  string      `json:"env_access_key,omitempty"`  // env storage: variable holding the access token
	EnvRefreshKey string      `json:"env_refresh_key,omitempty"` // env storage: variable holding the refresh token
	Redis         RedisConfig `json:"redis"`
}

// NewTokenStore creates the configured TokenStore. Redis stores also return
// the client so the caller can close it.
func (a *AuthConfig) NewTokenStore() (tokenstore.TokenStore, func() error, error) {
	noop := func() error { return nil }

	switch a.Storage {
	case TokenStorageTypeFile:
		store, err := tokenstore.NewFileStore(a.File)
		return store, noop, err
	case TokenStorageTypeKeyring:
		store, err := tokenstore.NewKeyringStore(keyringService, a.KeyringUser)
		return store, noop, err
	case TokenStorageTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Redis.Addr,
			Password: a.Redis.Password,
			DB:       a.Redis.DB,
		})
		store, err := tokenstore.NewRedisStore(client, a.Redis.Key)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return store, client.Close, nil
	case TokenStorageTypeMemory:
		return tokenstore.NewMemoryStore(tokenstore.CredentialPair{}), noop, nil
	case TokenStorageTypeEnv:
		store, err := tokenstore.NewEnvStore(a.EnvAccessKey, a.EnvRefreshKey)
		return store, noop, err
	default:
		return nil, noop, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// PollConfig controls the refresh interval of watched views.
type PollConfig struct {
	Interval time.Duration `json:"interval" validate:"gt=0"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level      `json:"log_level"`
	LogFormat LogFormat       `json:"log_format" validate:"oneof=text json"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Server    ServerConfig    `json:"server"`
	Shutdown  ShutdownConfig  `json:"shutdown"`
	Backend   BackendConfig   `json:"backend"`
	Auth      AuthConfig      `json:"auth"`
	Poll      PollConfig      `json:"poll"`
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
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultConfigBackendBaseURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultConfigBackendTimeout
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultConfigPollInterval
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "proxy-console", "session.json")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeRedis:
		if c.Auth.Redis.Addr == "" {
			c.Auth.Redis.Addr = DefaultConfigRedisAddr
		}
		if c.Auth.Redis.Key == "" {
			c.Auth.Redis.Key = DefaultConfigRedisKey
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvAccessKey == "" {
			c.Auth.EnvAccessKey = DefaultConfigAuthEnvAccessKey
		}
		if c.Auth.EnvRefreshKey == "" {
			c.Auth.EnvRefreshKey = DefaultConfigAuthEnvRefreshKey
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	case TokenStorageTypeRedis:
		if c.Auth.Redis.Addr == "" || c.Auth.Redis.Key == "" {
			return errors.New("redis addr and key required for redis storage")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvAccessKey == "" {
			return errors.New("env_access_key required for env storage")
		}
	}

	return nil
}

// Address is the gateway listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
