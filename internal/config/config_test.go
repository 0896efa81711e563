package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		EnvConfigPath, "PORT", "DATA_DIR", "JWT_SECRET", "GIN_MODE", "REDIS_ADDR",
		"REDIS_PASSWORD", "WAZUH_URL", "WAZUH_TOKEN", "LOG_LEVEL", "LOG_FILE",
		"CORS_ORIGINS", "ENABLE_PROFILING",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "sos2a.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./data", cfg.Server.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 120, cfg.RateLimit.IPLimit)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL.Duration)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Empty(t, cfg.WazuhClient().BaseURL)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
port = "9090"
jwt_secret = "a-much-longer-receipt-secret"
cors_origins = ["https://intake.example.com"]
request_timeout = "5s"

[log]
level = "debug"

[rate_limit]
ip_per_minute = 30

[wazuh]
url = "https://wazuh.example.com"
timeout = "2s"

[cache]
ttl = "1m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "./data", cfg.Server.DataDir, "unset keys keep defaults")
	assert.Equal(t, []string{"https://intake.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.Security().RequestTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30, cfg.RateLimit.IPLimit)
	assert.Equal(t, 10, cfg.RateLimit.ImportLimit)
	assert.Equal(t, time.Minute, cfg.Cache.TTL.Duration)
	assert.False(t, cfg.UsesDefaultSecret())

	wz := cfg.WazuhClient()
	assert.Equal(t, "https://wazuh.example.com", wz.BaseURL)
	assert.Equal(t, 2*time.Second, wz.Timeout)
	assert.Equal(t, 3, wz.Retry.MaxAttempts)
}

func TestLoadFileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, writeConfig(t, "[server]\nport = \"7000\"\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server]\nport = \"9090\"\n")
	t.Setenv("PORT", "9191")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_FILE", "/var/log/sos2a.log")
	t.Setenv("ENABLE_PROFILING", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9191", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "/var/log/sos2a.log", cfg.Log.File)
	assert.True(t, cfg.Server.EnablePprof)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "bad toml", body: "[server\nport=", want: "parse config"},
		{name: "bad duration", body: "[cache]\nttl = \"soon\"\n", want: "parse config"},
		{name: "short secret", body: "[server]\njwt_secret = \"short\"\n", want: "jwt_secret"},
		{name: "zero rate", body: "[rate_limit]\nip_per_minute = 0\n", want: "ip_per_minute"},
		{name: "bad bool env", env: map[string]string{"ENABLE_PROFILING": "maybe"}, want: "ENABLE_PROFILING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
