package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// CompressionConfig controls the gzip middleware.
type CompressionConfig struct {
	// MinSize is the smallest body worth compressing. Responses under it
	// are sent as-is.
	MinSize int
	// Level is the gzip compression level.
	Level int
	// CompressibleTypes lists media types that benefit from compression.
	CompressibleTypes []string
}

// DefaultCompressionConfig returns sensible defaults. Thumbnails are JPEG
// and never compressible; this matters for the JSON endpoints and error
// bodies.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"text/html",
			"text/plain",
			"text/xml",
			"application/json",
			"application/xml",
			"image/svg+xml",
		},
	}
}

var gzipPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

// compressWriter defers the compress-or-not decision until enough of the
// body has been seen. Writes accumulate in pending until the size
// threshold is crossed; headers are held back for the same reason, since
// Content-Encoding must be settled before the first real write.
type compressWriter struct {
	http.ResponseWriter
	config   CompressionConfig
	pending  []byte
	status   int
	gz       *gzip.Writer
	decided  bool
	compress bool
}

func newCompressWriter(w http.ResponseWriter, config CompressionConfig) *compressWriter {
	return &compressWriter{
		ResponseWriter: w,
		config:         config,
		status:         http.StatusOK,
		pending:        make([]byte, 0, config.MinSize+1),
	}
}

func (c *compressWriter) WriteHeader(status int) {
	if !c.decided {
		c.status = status
	}
}

func (c *compressWriter) Write(data []byte) (int, error) {
	if c.decided {
		if c.compress {
			return c.gz.Write(data)
		}
		return c.ResponseWriter.Write(data)
	}
	c.pending = append(c.pending, data...)
	if len(c.pending) > c.config.MinSize {
		c.decide()
	}
	return len(data), nil
}

// decide commits to a transfer encoding and drains the pending buffer.
func (c *compressWriter) decide() {
	if c.decided {
		return
	}
	c.decided = true
	c.compress = len(c.pending) >= c.config.MinSize && c.typeCompressible()

	if c.compress {
		h := c.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		c.gz = gzipPool.Get().(*gzip.Writer)
		c.gz.Reset(c.ResponseWriter)
	}
	c.ResponseWriter.WriteHeader(c.status)
	if c.compress {
		c.gz.Write(c.pending)
	} else {
		c.ResponseWriter.Write(c.pending)
	}
	c.pending = nil
}

func (c *compressWriter) typeCompressible() bool {
	ct := c.Header().Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	for _, want := range c.config.CompressibleTypes {
		if mediaType == want {
			return true
		}
	}
	return false
}

// close flushes whatever was held back and recycles the gzip writer.
func (c *compressWriter) close() error {
	c.decide()
	if c.gz == nil {
		return nil
	}
	err := c.gz.Close()
	gzipPool.Put(c.gz)
	c.gz = nil
	return err
}

func (c *compressWriter) Flush() {
	c.decide()
	if c.gz != nil {
		c.gz.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Compression returns a middleware that gzips large compressible
// responses for clients that advertise gzip support.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") || r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}
			cw := newCompressWriter(w, config)
			defer cw.close()
			next.ServeHTTP(cw, r)
		})
	}
}
