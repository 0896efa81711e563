package resilience

import (
	"net"
	"net/http"
	"time"
)

// PoolConfig sizes the shared transport used for outbound API calls
type PoolConfig struct {
	MaxIdle     int
	MaxActive   int
	IdleTimeout time.Duration
	Timeout     time.Duration
}

// DefaultPoolConfig suits a single upstream such as a Wazuh manager
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdle:     10,
		MaxActive:   20,
		IdleTimeout: 90 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// NewPooledClient returns an HTTP client whose transport keeps idle
// connections to the upstream host. Zero fields take the defaults.
func NewPooledClient(cfg PoolConfig) *http.Client {
	def := DefaultPoolConfig()
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = def.MaxIdle
	}
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = def.MaxActive
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdle,
		MaxIdleConnsPerHost:   cfg.MaxIdle,
		MaxConnsPerHost:       cfg.MaxActive,
		IdleConnTimeout:       cfg.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport, Timeout: cfg.Timeout}
}

// PoolStats describes a client built by NewPooledClient
func PoolStats(client *http.Client) map[string]interface{} {
	stats := map[string]interface{}{"timeout_ms": client.Timeout.Milliseconds()}
	if t, ok := client.Transport.(*http.Transport); ok {
		stats["max_idle"] = t.MaxIdleConns
		stats["max_active"] = t.MaxConnsPerHost
		stats["idle_timeout_ms"] = t.IdleConnTimeout.Milliseconds()
	}
	return stats
}
