package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9)
	ContentTypes     []string // Content type prefixes eligible for compression
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"application/pdf",
			"text/plain",
			"text/csv",
			"text/markdown",
			"text/html",
		},
	}
}

// CompressionMiddleware gzips large responses for clients that accept it.
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.MinSize <= 0 {
		config.MinSize = DefaultCompressionConfig().MinSize
	}
	level := config.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	config.CompressionLevel = level

	return &CompressionMiddleware{
		config: config,
		stats:  NewCompressionStats(),
		pool: sync.Pool{
			New: func() interface{} {
				gz, _ := gzip.NewWriterLevel(io.Discard, level)
				return gz
			},
		},
	}
}

// Handler returns the gin middleware. Output is buffered until MinSize bytes
// have been written; smaller bodies are sent as-is.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cm.clientAcceptsGzip(c.Request) || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		gzw := &gzipResponseWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = gzw
		defer func() {
			gzw.finish()
			c.Writer = gzw.ResponseWriter
		}()

		c.Header("Vary", "Accept-Encoding")
		c.Next()
	}
}

func (cm *CompressionMiddleware) clientAcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	if contentType == "" {
		return false
	}
	for _, ct := range cm.config.ContentTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return false
}

func (cm *CompressionMiddleware) getGzipWriter(w io.Writer) *gzip.Writer {
	gz := cm.pool.Get().(*gzip.Writer)
	gz.Reset(w)
	return gz
}

func (cm *CompressionMiddleware) returnGzipWriter(gz *gzip.Writer) {
	gz.Reset(io.Discard)
	cm.pool.Put(gz)
}

// gzipResponseWriter buffers the head of the body so the compress decision
// can be made before any bytes reach the client.
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm *CompressionMiddleware

	buf      bytes.Buffer
	gz       *gzip.Writer
	counter  countingWriter
	decided  bool
	original int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	gzw.original += int64(len(data))

	switch {
	case gzw.gz != nil:
		return gzw.gz.Write(data)
	case gzw.decided:
		return gzw.ResponseWriter.Write(data)
	}

	gzw.buf.Write(data)
	if gzw.buf.Len() < gzw.cm.config.MinSize {
		return len(data), nil
	}
	if err := gzw.decide(); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	return gzw.Write([]byte(s))
}

// Written reports buffered output too, so error middleware does not append a
// second body after a handler already produced one.
func (gzw *gzipResponseWriter) Written() bool {
	return gzw.buf.Len() > 0 || gzw.gz != nil || gzw.ResponseWriter.Written()
}

func (gzw *gzipResponseWriter) Size() int {
	if gzw.original == 0 {
		return gzw.ResponseWriter.Size()
	}
	return int(gzw.original)
}

// decide is called once the buffer reaches MinSize.
func (gzw *gzipResponseWriter) decide() error {
	gzw.decided = true

	status := gzw.ResponseWriter.Status()
	header := gzw.Header()
	compressible := status != http.StatusNoContent &&
		status != http.StatusNotModified &&
		header.Get("Content-Encoding") == "" &&
		gzw.cm.shouldCompress(header.Get("Content-Type"))

	if !compressible {
		_, err := gzw.ResponseWriter.Write(gzw.buf.Bytes())
		gzw.buf.Reset()
		return err
	}

	header.Set("Content-Encoding", "gzip")
	header.Del("Content-Length")
	gzw.counter = countingWriter{w: gzw.ResponseWriter}
	gzw.gz = gzw.cm.getGzipWriter(&gzw.counter)
	_, err := gzw.gz.Write(gzw.buf.Bytes())
	gzw.buf.Reset()
	return err
}

func (gzw *gzipResponseWriter) Flush() {
	if !gzw.decided && gzw.buf.Len() > 0 {
		_ = gzw.decide()
	}
	if gzw.gz != nil {
		_ = gzw.gz.Flush()
	}
	gzw.ResponseWriter.Flush()
}

// finish drains any small buffered body and closes the gzip stream.
func (gzw *gzipResponseWriter) finish() {
	if gzw.gz != nil {
		_ = gzw.gz.Close()
		gzw.cm.returnGzipWriter(gzw.gz)
		gzw.cm.stats.RecordRequest(gzw.original, gzw.counter.n, true)
		gzw.gz = nil
		return
	}
	if !gzw.decided && gzw.buf.Len() > 0 {
		_, _ = gzw.ResponseWriter.Write(gzw.buf.Bytes())
		gzw.buf.Reset()
	}
	gzw.decided = true
	gzw.cm.stats.RecordRequest(gzw.original, gzw.original, false)
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++
	cs.TotalBytes += originalSize

	if compressed {
		cs.CompressedRequests++
		cs.CompressedBytes += compressedSize
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	compressionRatio := float64(0)
	if cs.TotalBytes > 0 {
		compressionRatio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"compressed_bytes":    cs.CompressedBytes,
		"compression_ratio":   compressionRatio,
	}
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}
