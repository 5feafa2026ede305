package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
server:
  api_key: file-api-key
gemini:
  api_key: file-gemini-key
`

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.APIKey != "file-api-key" {
		t.Errorf("api key: got %q", cfg.Server.APIKey)
	}
	if cfg.Gemini.APIKey != "file-gemini-key" {
		t.Errorf("gemini key: got %q", cfg.Gemini.APIKey)
	}

	// Unset fields fall back to defaults.
	if cfg.Server.Port != 9321 {
		t.Errorf("port: got %d, want 9321", cfg.Server.Port)
	}
	if cfg.Twitter.BaseURL != "https://api.twitter.com/2" {
		t.Errorf("twitter base url: got %q", cfg.Twitter.BaseURL)
	}
	if cfg.Gemini.Model != "gemini-1.5-flash" {
		t.Errorf("model: got %q", cfg.Gemini.Model)
	}
	if cfg.Cache.FetchLimit != 100 {
		t.Errorf("fetch limit: got %d, want 100", cfg.Cache.FetchLimit)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialDelay != time.Second {
		t.Errorf("retry defaults: %+v", cfg.Retry)
	}
	if cfg.Worker.Count != 1 || cfg.Worker.PollInterval != 5*time.Second {
		t.Errorf("worker defaults: %+v", cfg.Worker)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("API_KEY", "env-api-key")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")

	cfg, err := Load(writeConfigFile(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "env-api-key" {
		t.Errorf("api key: got %q, want env override", cfg.Server.APIKey)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("ttl: got %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Gemini.Model != "gemini-1.5-pro" {
		t.Errorf("model: got %q", cfg.Gemini.Model)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("API_KEY", "env-api-key")
	t.Setenv("GEMINI_API_KEY", "env-gemini-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Path != "/data/facepass.db" {
		t.Errorf("database path: got %q", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load(writeConfigFile(t, "server: [not a mapping")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.Server.APIKey = "" },
			wantErr: "API_KEY",
		},
		{
			name:    "missing gemini key",
			mutate:  func(c *Config) { c.Gemini.APIKey = "" },
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "DATABASE_PATH",
		},
		{
			name:    "fetch limit zero",
			mutate:  func(c *Config) { c.Cache.FetchLimit = 0 },
			wantErr: "CACHE_FETCH_LIMIT",
		},
		{
			name:    "fetch limit too high",
			mutate:  func(c *Config) { c.Cache.FetchLimit = 500 },
			wantErr: "CACHE_FETCH_LIMIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Server.APIKey = "k"
			cfg.Gemini.APIKey = "g"
			cfg.Database.Path = "/tmp/db"
			cfg.Cache.FetchLimit = 100
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 9321}
	if got := sc.Address(); got != "127.0.0.1:9321" {
		t.Errorf("Address() = %q", got)
	}
}
