package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the artfeed service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Feed       FeedConfig       `yaml:"feed"`
	Engagement EngagementConfig `yaml:"engagement"`
	Blob       BlobConfig       `yaml:"blob"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// FeedConfig holds feed paging settings.
type FeedConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	MaxScanPages    int `yaml:"max_scan_pages"`
	MaxTieGroup     int `yaml:"max_tie_group"`
}

// EngagementConfig holds like transaction settings.
type EngagementConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// BlobConfig holds image URL resolution settings.
type BlobConfig struct {
	Driver   string         `yaml:"driver"` // static, supabase (default: static)
	BaseURL  string         `yaml:"base_url"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Cache    CacheConfig    `yaml:"cache"`
	Breaker  BreakerConfig  `yaml:"breaker"`
}

// SupabaseConfig holds Supabase Storage settings.
type SupabaseConfig struct {
	URL          string `yaml:"url"`
	Key          string `yaml:"key"`
	Bucket       string `yaml:"bucket"`
	SignedTTLSec int    `yaml:"signed_ttl_sec"`
}

// CacheConfig holds resolved URL cache settings. Size 0 disables the cache.
type CacheConfig struct {
	Size   int `yaml:"size"`
	TTLSec int `yaml:"ttl_sec"`
}

// BreakerConfig holds blob circuit breaker settings.
type BreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MinRequests      uint32  `yaml:"min_requests"`
	FailureThreshold float64 `yaml:"failure_threshold"`
	OpenTimeoutSec   int     `yaml:"open_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Feed.DefaultPageSize <= 0 {
		c.Feed.DefaultPageSize = 20
	}
	if c.Feed.MaxPageSize <= 0 {
		c.Feed.MaxPageSize = 100
	}
	if c.Feed.MaxScanPages <= 0 {
		c.Feed.MaxScanPages = 5
	}
	if c.Feed.MaxTieGroup <= 0 {
		c.Feed.MaxTieGroup = 1000
	}
	if c.Engagement.MaxAttempts <= 0 {
		c.Engagement.MaxAttempts = 16
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = "static"
	}
	if c.Blob.Supabase.SignedTTLSec <= 0 {
		c.Blob.Supabase.SignedTTLSec = 3600
	}
	if c.Blob.Cache.TTLSec <= 0 {
		c.Blob.Cache.TTLSec = c.Blob.Supabase.SignedTTLSec / 2
	}
	if c.Blob.Breaker.MinRequests == 0 {
		c.Blob.Breaker.MinRequests = 10
	}
	if c.Blob.Breaker.FailureThreshold <= 0 {
		c.Blob.Breaker.FailureThreshold = 0.5
	}
	if c.Blob.Breaker.OpenTimeoutSec <= 0 {
		c.Blob.Breaker.OpenTimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Feed.DefaultPageSize > c.Feed.MaxPageSize {
		return fmt.Errorf("feed.default_page_size %d exceeds feed.max_page_size %d",
			c.Feed.DefaultPageSize, c.Feed.MaxPageSize)
	}
	switch c.Blob.Driver {
	case "static":
		if c.Blob.BaseURL == "" {
			return fmt.Errorf("blob.base_url is required for the static driver")
		}
	case "supabase":
		sb := c.Blob.Supabase
		if sb.URL == "" || sb.Key == "" || sb.Bucket == "" {
			return fmt.Errorf("blob.supabase url, key and bucket are required")
		}
		if c.Blob.Cache.Size > 0 && c.Blob.Cache.TTLSec >= sb.SignedTTLSec {
			return fmt.Errorf("blob.cache.ttl_sec must be below blob.supabase.signed_ttl_sec")
		}
	default:
		return fmt.Errorf("blob.driver must be \"static\" or \"supabase\", got %q", c.Blob.Driver)
	}
	if t := c.Blob.Breaker.FailureThreshold; t > 1 {
		return fmt.Errorf("blob.breaker.failure_threshold must be in (0, 1], got %v", t)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
