// Package config loads the server configuration: built-in defaults, then an
// optional TOML file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/devicerisk"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/monitoring"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/ratelimit"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/resilience"
	"github.com/ZanzyTHEbar/sos2a-intake/internal/security"
)

// EnvConfigPath names the variable holding the config file path
const EnvConfigPath = "SOS2A_CONFIG"

const defaultJWTSecret = "change-me-sos2a-receipt-secret"

// Duration is a time.Duration that decodes from strings such as "90s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Server holds listener and storage settings
type Server struct {
	Port           string   `toml:"port"`
	DataDir        string   `toml:"data_dir"`
	JWTSecret      string   `toml:"jwt_secret"`
	CORSOrigins    []string `toml:"cors_origins"`
	RequestTimeout Duration `toml:"request_timeout"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
	EnableHSTS     bool     `toml:"enable_hsts"`
	EnablePprof    bool     `toml:"enable_pprof"`
	Mode           string   `toml:"mode"`
}

// Wazuh configures the optional agent score client
type Wazuh struct {
	URL              string   `toml:"url"`
	Token            string   `toml:"token"`
	Timeout          Duration `toml:"timeout"`
	FailureThreshold int      `toml:"failure_threshold"`
	RecoveryTimeout  Duration `toml:"recovery_timeout"`
	MaxAttempts      int      `toml:"max_attempts"`
}

// Retention controls the stale draft sweep
type Retention struct {
	Drafts   Duration `toml:"drafts"`
	Interval Duration `toml:"interval"`
}

// Cache configures the heatmap response cache
type Cache struct {
	TTL      Duration `toml:"ttl"`
	MaxItems int      `toml:"max_items"`
}

// Config is the full server configuration
type Config struct {
	Server    Server                `toml:"server"`
	Log       monitoring.LogOptions `toml:"log"`
	Redis     ratelimit.RedisConfig `toml:"redis"`
	RateLimit ratelimit.Config      `toml:"rate_limit"`
	Wazuh     Wazuh                 `toml:"wazuh"`
	Retention Retention             `toml:"retention"`
	Cache     Cache                 `toml:"cache"`
}

// Default returns the built-in configuration
func Default() Config {
	sec := security.DefaultConfig()
	return Config{
		Server: Server{
			Port:           "8080",
			DataDir:        "./data",
			JWTSecret:      defaultJWTSecret,
			CORSOrigins:    sec.AllowedOrigins,
			RequestTimeout: Duration{sec.RequestTimeout},
			MaxBodyBytes:   sec.MaxBodyBytes,
			Mode:           "release",
		},
		Log: monitoring.LogOptions{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		RateLimit: ratelimit.DefaultConfig(),
		Wazuh: Wazuh{
			Timeout:          Duration{10 * time.Second},
			FailureThreshold: 5,
			RecoveryTimeout:  Duration{30 * time.Second},
			MaxAttempts:      3,
		},
		Retention: Retention{
			Drafts:   Duration{365 * 24 * time.Hour},
			Interval: Duration{24 * time.Hour},
		},
		Cache: Cache{
			TTL:      Duration{15 * time.Minute},
			MaxItems: 1000,
		},
	}
}

// Load builds the configuration. path overrides SOS2A_CONFIG; when both are
// empty no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.DataDir = getEnvOrDefault("DATA_DIR", c.Server.DataDir)
	c.Server.JWTSecret = getEnvOrDefault("JWT_SECRET", c.Server.JWTSecret)
	c.Server.Mode = getEnvOrDefault("GIN_MODE", c.Server.Mode)
	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Wazuh.URL = getEnvOrDefault("WAZUH_URL", c.Wazuh.URL)
	c.Wazuh.Token = getEnvOrDefault("WAZUH_TOKEN", c.Wazuh.Token)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnvOrDefault("LOG_FILE", c.Log.File)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}
	if v := os.Getenv("ENABLE_PROFILING"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ENABLE_PROFILING: %w", err)
		}
		c.Server.EnablePprof = enabled
	}
	return nil
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	var problems []string
	if c.Server.Port == "" {
		problems = append(problems, "server.port is empty")
	}
	if c.Server.DataDir == "" {
		problems = append(problems, "server.data_dir is empty")
	}
	if len(c.Server.JWTSecret) < 16 {
		problems = append(problems, "server.jwt_secret must be at least 16 characters")
	}
	if c.RateLimit.IPLimit <= 0 {
		problems = append(problems, "rate_limit.ip_per_minute must be positive")
	}
	if c.Cache.TTL.Duration <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// UsesDefaultSecret reports whether the receipt secret was never changed
func (c Config) UsesDefaultSecret() bool {
	return c.Server.JWTSecret == defaultJWTSecret
}

// Security returns the security middleware settings
func (c Config) Security() security.Config {
	return security.Config{
		AllowedOrigins: c.Server.CORSOrigins,
		RequestTimeout: c.Server.RequestTimeout.Duration,
		MaxBodyBytes:   c.Server.MaxBodyBytes,
		EnableHSTS:     c.Server.EnableHSTS,
	}
}

// WazuhClient returns the Wazuh client settings
func (c Config) WazuhClient() devicerisk.WazuhConfig {
	return devicerisk.WazuhConfig{
		BaseURL: c.Wazuh.URL,
		Token:   c.Wazuh.Token,
		Timeout: c.Wazuh.Timeout.Duration,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: c.Wazuh.FailureThreshold,
			RecoveryTimeout:  c.Wazuh.RecoveryTimeout.Duration,
			SuccessThreshold: 1,
		},
		Retry: resilience.RetryConfig{
			MaxAttempts:   c.Wazuh.MaxAttempts,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2,
			JitterEnabled: true,
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
