package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/sos2a-intake/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimit         int           `toml:"ip_per_minute"`     // requests per IP per minute
	ImportLimit     int           `toml:"import_per_minute"` // CSV imports per IP per minute
	SubmitLimit     int           `toml:"submit_per_hour"`   // submissions per IP per hour
	CleanupInterval time.Duration `toml:"-"`
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimit:         120,
		ImportLimit:     10,
		SubmitLimit:     20,
		CleanupInterval: time.Hour,
	}
}

// Rate is a limit of Limit requests per Period with an optional burst
type Rate struct {
	Limit  int
	Burst  int
	Period time.Duration
}

// PerMinute returns a rate of n per minute
func PerMinute(n int) Rate { return Rate{Limit: n, Period: time.Minute} }

// PerHour returns a rate of n per hour
func PerHour(n int) Rate { return Rate{Limit: n, Period: time.Hour} }

func (r Rate) burst() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides distributed rate limiting with Redis and an in-memory
// token bucket fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex

	stop      chan struct{}
	closeOnce sync.Once
}

// NewRateLimiter creates a rate limiter. redisClient and metrics may be nil.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Hour
	}
	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		stop:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupLoop()

	return rl
}

// Config returns the limiter configuration
func (rl *RateLimiter) Config() Config {
	return rl.config
}

// AllowIP applies the per-minute IP limit
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, fmt.Sprintf("ratelimit:ip:%s", ip), PerMinute(rl.config.IPLimit))
}

// Allow checks key against r, using Redis when available
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Limit <= 0 || r.Period <= 0 {
		return nil, fmt.Errorf("invalid rate for %s: %d per %s", key, r.Limit, r.Period)
	}

	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, r)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	} else if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}

	return rl.allowFallback(key, r, time.Now()), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, r Rate) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   r.Limit,
		Burst:  r.burst(),
		Period: r.Period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	result := &Result{
		Allowed:   res.Allowed > 0,
		Limit:     res.Limit.Rate,
		Remaining: res.Remaining,
		ResetAt:   time.Now().Add(res.ResetAfter),
	}
	if !result.Allowed {
		result.RetryAfter = res.RetryAfter
	}
	return result, nil
}

func (rl *RateLimiter) allowFallback(key string, r Rate, now time.Time) *Result {
	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		perSecond := float64(r.Limit) / r.Period.Seconds()
		entry = &fallbackEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), r.burst())}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)

	result := &Result{
		Allowed:   allowed,
		Limit:     r.Limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}

	// time until the bucket is full again, and until the next token
	perSecond := float64(entry.limiter.Limit())
	missing := float64(r.burst()) - tokens
	result.ResetAt = now.Add(time.Duration(missing / perSecond * float64(time.Second)))
	if !allowed {
		result.RetryAfter = time.Duration((1 - tokens) / perSecond * float64(time.Second))
	}
	return result
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

// evictIdle drops fallback buckets unused for a full cleanup interval
func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	n := 0
	for key, entry := range rl.fallbackLimiters {
		if now.Sub(entry.lastSeen) >= rl.config.CleanupInterval {
			delete(rl.fallbackLimiters, key)
			n++
		}
	}
	if n > 0 {
		slog.Debug("Evicted idle fallback rate limiters", "count", n)
	}
	return n
}

// Reset clears the limit state of one key
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	rl.fallbackMutex.Lock()
	delete(rl.fallbackLimiters, key)
	rl.fallbackMutex.Unlock()

	if rl.redisLimiter != nil {
		return rl.redisLimiter.Reset(ctx, key)
	}
	return nil
}

// Close stops the cleanup loop
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stop) })
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"limits": map[string]int{
			"ip_per_minute":     rl.config.IPLimit,
			"import_per_minute": rl.config.ImportLimit,
			"submit_per_hour":   rl.config.SubmitLimit,
		},
	}
	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.GetPoolStats()
	}
	return stats
}
