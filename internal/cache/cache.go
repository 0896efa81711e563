package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxCachedBody bounds the request bodies the middleware will hash
const maxCachedBody = 1 << 20

// Recorder receives cache outcomes
type Recorder interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// CacheItem represents a cached response with expiration
type CacheItem struct {
	Data        []byte
	ContentType string
	ExpiresAt   time.Time
}

// Cache is a thread-safe TTL cache for deterministic responses
type Cache struct {
	mu       sync.RWMutex
	items    map[string]*CacheItem
	ttl      time.Duration
	maxItems int
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewCache creates a cache with the given TTL and capacity and starts the
// expiry sweep. maxItems <= 0 means unbounded.
func NewCache(ttl time.Duration, maxItems int) *Cache {
	c := &Cache{
		items:    make(map[string]*CacheItem),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go c.cleanup(5 * time.Minute)
	return c
}

func (c *Cache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpiredLocked()
			c.mu.Unlock()
		}
	}
}

// Close stops the expiry sweep
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) evictExpiredLocked() int {
	now := c.now()
	n := 0
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Key hashes the parts into a cache key
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves an unexpired item
func (c *Cache) Get(key string) (*CacheItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || c.now().After(item.ExpiresAt) {
		return nil, false
	}
	return item, true
}

// Set stores an item. When the cache is full, expired items are dropped
// first and then the entry closest to expiry.
func (c *Cache) Set(key string, data []byte, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		if c.evictExpiredLocked() == 0 {
			c.evictOldestLocked()
		}
	}

	c.items[key] = &CacheItem{
		Data:        data,
		ContentType: contentType,
		ExpiresAt:   c.now().Add(c.ttl),
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.ExpiresAt.Before(oldest) {
			oldestKey, oldest = key, item.ExpiresAt
		}
	}
	delete(c.items, oldestKey)
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*CacheItem)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	expired := 0
	for _, item := range c.items {
		if now.After(item.ExpiresAt) {
			expired++
		}
	}

	return map[string]interface{}{
		"total_items":   len(c.items),
		"expired_items": expired,
		"active_items":  len(c.items) - expired,
		"max_items":     c.maxItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Middleware caches successful POST responses on the given routes, keyed by
// path and request body. It sets X-Cache to HIT or MISS.
func (c *Cache) Middleware(metrics Recorder, paths ...string) gin.HandlerFunc {
	cached := make(map[string]bool, len(paths))
	for _, p := range paths {
		cached[p] = true
	}

	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || !cached[ctx.Request.URL.Path] {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxCachedBody+1))
		if err != nil || len(body) > maxCachedBody {
			ctx.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), ctx.Request.Body))
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := Key([]byte(ctx.Request.URL.Path), body)

		if item, found := c.Get(key); found {
			slog.Debug("Cache hit", "key", key[:8]+"...", "path", ctx.Request.URL.Path)
			metrics.IncrementCacheHit()
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, item.ContentType, item.Data)
			ctx.Abort()
			return
		}

		metrics.IncrementCacheMiss()
		ctx.Header("X-Cache", "MISS")

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Next()

		if wrapper.Status() == http.StatusOK {
			c.Set(key, wrapper.body.Bytes(), wrapper.Header().Get("Content-Type"))
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
