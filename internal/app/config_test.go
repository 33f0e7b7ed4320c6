package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/florianilch/proxy-console/internal/tokenstore"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	if cfg.Backend.Timeout != DefaultConfigBackendTimeout {
		t.Errorf("Backend.Timeout = %v, want %v", cfg.Backend.Timeout, DefaultConfigBackendTimeout)
	}
	if cfg.Auth.Storage != TokenStorageTypeFile || !strings.HasSuffix(cfg.Auth.File, filepath.Join("proxy-console", "session.json")) {
		t.Errorf("unexpected auth defaults %+v", cfg.Auth)
	}
	if cfg.Address() != "127.0.0.1:4000" {
		t.Errorf("Address = %q", cfg.Address())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestApplyDefaultsPerStorage(t *testing.T) {
	redisCfg := &Config{Auth: AuthConfig{Storage: TokenStorageTypeRedis}}
	if err := redisCfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults failed: %v", err)
	}
	if redisCfg.Auth.Redis.Addr != DefaultConfigRedisAddr || redisCfg.Auth.Redis.Key != DefaultConfigRedisKey {
		t.Errorf("unexpected redis defaults %+v", redisCfg.Auth.Redis)
	}

	envCfg := &Config{Auth: AuthConfig{Storage: TokenStorageTypeEnv}}
	if err := envCfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults failed: %v", err)
	}
	if envCfg.Auth.EnvAccessKey != DefaultConfigAuthEnvAccessKey {
		t.Errorf("EnvAccessKey = %q", envCfg.Auth.EnvAccessKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory storage", func(c *Config) { c.Auth.Storage = TokenStorageTypeMemory }, false},
		{"unknown storage", func(c *Config) { c.Auth.Storage = "s3" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"bad exporter", func(c *Config) { c.Telemetry.Exporter = "kafka" }, true},
		{"relative backend url", func(c *Config) { c.Backend.BaseURL = "not a url" }, true},
		{"negative timeout", func(c *Config) { c.Backend.Timeout = -time.Second }, true},
		{"empty file path", func(c *Config) { c.Auth.File = "" }, true},
		{"bad host", func(c *Config) { c.Server.Host = "bad host!" }, true},
		{"redis without key", func(c *Config) {
			c.Auth.Storage = TokenStorageTypeRedis
			c.Auth.Redis.Addr = "localhost:6379"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Auth: AuthConfig{File: filepath.Join(t.TempDir(), "session.json")}}
			if err := cfg.ApplyDefaults(); err != nil {
				t.Fatalf("ApplyDefaults failed: %v", err)
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewTokenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	tests := []struct {
		name string
		auth AuthConfig
	}{
		{"file", AuthConfig{Storage: TokenStorageTypeFile, File: filepath.Join(t.TempDir(), "session.json")}},
		{"memory", AuthConfig{Storage: TokenStorageTypeMemory}},
		{"redis", AuthConfig{Storage: TokenStorageTypeRedis, Redis: RedisConfig{Addr: mr.Addr(), Key: "test:session"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeStore, err := tt.auth.NewTokenStore()
			if err != nil {
				t.Fatalf("NewTokenStore failed: %v", err)
			}
			defer func() { _ = closeStore() }()

			want := tokenstore.CredentialPair{AccessToken: "a-1", RefreshToken: "r-1"}
			if err := store.Set(ctx, want); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got, err := store.Get(ctx)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != want {
				t.Errorf("Get = %+v, want %+v", got, want)
			}
		})
	}
}

func TestNewTokenStoreEnvIsReadOnly(t *testing.T) {
	t.Setenv("TEST_ACCESS", "static-token")

	auth := AuthConfig{Storage: TokenStorageTypeEnv, EnvAccessKey: "TEST_ACCESS"}
	store, _, err := auth.NewTokenStore()
	if err != nil {
		t.Fatalf("NewTokenStore failed: %v", err)
	}

	pair, err := store.Get(context.Background())
	if err != nil || pair.AccessToken != "static-token" {
		t.Fatalf("Get = %+v, %v", pair, err)
	}
	if err := store.Set(context.Background(), pair); err == nil {
		t.Error("expected env store to be read-only")
	}
}
