package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Cache    CacheConfig    `yaml:"cache"`
	Retry    RetryConfig    `yaml:"retry"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"9321"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds SQLite storage configuration.
type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"DATABASE_PATH" default:"/data/facepass.db"`
	// TokenSealKey, when set, encrypts the stored bearer-token override
	// at rest. Leave empty to store it in plaintext.
	TokenSealKey string `yaml:"token_seal_key" envconfig:"TOKEN_SEAL_KEY"`
}

// TwitterConfig holds platform API configuration.
type TwitterConfig struct {
	// BearerToken is the static fallback used when no admin override is stored.
	BearerToken string        `yaml:"bearer_token" envconfig:"TWITTER_BEARER_TOKEN"`
	BaseURL     string        `yaml:"base_url" envconfig:"TWITTER_BASE_URL" default:"https://api.twitter.com/2"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TWITTER_TIMEOUT" default:"15s"`
	// RatePerSecond bounds outbound API calls; burst is fixed at 1.
	RatePerSecond float64 `yaml:"rate_per_second" envconfig:"TWITTER_RATE_PER_SECOND" default:"1"`
}

// GeminiConfig holds generative classification configuration.
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model   string        `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	Timeout time.Duration `yaml:"timeout" envconfig:"GEMINI_TIMEOUT" default:"30s"`
}

// CacheConfig holds media cache policy configuration.
type CacheConfig struct {
	// TTL expires entries at read time when > 0. Zero keeps entries
	// until explicit invalidation, which is the default policy.
	TTL time.Duration `yaml:"ttl" envconfig:"CACHE_TTL" default:"0"`
	// SweepInterval is how often expired rows are deleted when TTL is set.
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"CACHE_SWEEP_INTERVAL" default:"15m"`
	// FetchLimit is the number of recent posts requested upstream.
	FetchLimit int `yaml:"fetch_limit" envconfig:"CACHE_FETCH_LIMIT" default:"100"`
}

// RetryConfig holds retry/backoff configuration for upstream calls.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts" envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	InitialDelay  time.Duration `yaml:"initial_delay" envconfig:"RETRY_INITIAL_DELAY" default:"1s"`
	MaxDelay      time.Duration `yaml:"max_delay" envconfig:"RETRY_MAX_DELAY" default:"30s"`
	BackoffFactor float64       `yaml:"backoff_factor" envconfig:"RETRY_BACKOFF_FACTOR" default:"2.0"`
}

// WorkerConfig holds refresh worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"1"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"WORKER_MAX_RETRIES" default:"2"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Cache.FetchLimit <= 0 || c.Cache.FetchLimit > 100 {
		return fmt.Errorf("CACHE_FETCH_LIMIT must be in 1..100")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
