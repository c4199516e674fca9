// Package performance provides response compression for the web frontend
package performance

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/andybalholm/brotli"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	compressionRequestsDesc = prometheus.NewDesc(
		"http_compression_requests_total",
		"Requests seen by the compression middleware",
		nil, nil,
	)
	compressedResponsesDesc = prometheus.NewDesc(
		"http_compressed_responses_total",
		"Responses sent compressed, by content encoding",
		[]string{"encoding"}, nil,
	)
	compressionBytesSavedDesc = prometheus.NewDesc(
		"http_compression_bytes_saved_total",
		"Bytes saved by response compression",
		nil, nil,
	)
)

// Content encodings produced by the middleware
const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"
)

// CompressionConfig configures compression behavior
type CompressionConfig struct {
	BrotliLevel       int // 0-11
	GzipLevel         int // 1-9
	MinSizeBytes      int
	CompressibleTypes []string
}

// DefaultCompressionConfig returns sensible defaults
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		BrotliLevel:  6,
		GzipLevel:    gzip.DefaultCompression,
		MinSizeBytes: 512,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/plain",
			"text/javascript",
			"application/javascript",
			"application/json",
			"image/svg+xml",
		},
	}
}

// CompressionStats is a snapshot of the middleware counters
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	BrotliRequests     int64
	GzipRequests       int64
	BytesSaved         int64
}

// CompressionMiddleware compresses buffered responses with brotli, falling
// back to gzip for clients that do not accept br
type CompressionMiddleware struct {
	config CompressionConfig

	total      atomic.Int64
	compressed atomic.Int64
	brotli     atomic.Int64
	gzip       atomic.Int64
	saved      atomic.Int64
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	return &CompressionMiddleware{config: config}
}

type bufferedWriter struct {
	http.ResponseWriter
	buffer     bytes.Buffer
	statusCode int
}

func (w *bufferedWriter) WriteHeader(code int) {
	if w.statusCode == 0 {
		w.statusCode = code
	}
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.buffer.Write(p)
}

// Handler returns the middleware handler function
func (cm *CompressionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cm.total.Add(1)

		encoding := cm.negotiate(r)
		if encoding == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		bw := &bufferedWriter{ResponseWriter: w}
		next.ServeHTTP(bw, r)
		if bw.statusCode == 0 {
			bw.statusCode = http.StatusOK
		}

		content := bw.buffer.Bytes()
		if !cm.compressible(bw.Header(), len(content)) {
			w.WriteHeader(bw.statusCode)
			_, _ = w.Write(content)
			return
		}

		compressed, err := cm.compress(content, encoding)
		if err != nil || len(compressed) >= len(content) {
			w.WriteHeader(bw.statusCode)
			_, _ = w.Write(content)
			return
		}

		cm.compressed.Add(1)
		cm.saved.Add(int64(len(content) - len(compressed)))
		if encoding == EncodingBrotli {
			cm.brotli.Add(1)
		} else {
			cm.gzip.Add(1)
		}

		w.Header().Set("Content-Encoding", encoding)
		w.Header().Set("Content-Length", strconv.Itoa(len(compressed)))
		w.WriteHeader(bw.statusCode)
		_, _ = w.Write(compressed)
	})
}

// Stats returns the current counters
func (cm *CompressionMiddleware) Stats() CompressionStats {
	return CompressionStats{
		TotalRequests:      cm.total.Load(),
		CompressedRequests: cm.compressed.Load(),
		BrotliRequests:     cm.brotli.Load(),
		GzipRequests:       cm.gzip.Load(),
		BytesSaved:         cm.saved.Load(),
	}
}

// Describe implements prometheus.Collector
func (cm *CompressionMiddleware) Describe(ch chan<- *prometheus.Desc) {
	ch <- compressionRequestsDesc
	ch <- compressedResponsesDesc
	ch <- compressionBytesSavedDesc
}

// Collect implements prometheus.Collector
func (cm *CompressionMiddleware) Collect(ch chan<- prometheus.Metric) {
	stats := cm.Stats()
	ch <- prometheus.MustNewConstMetric(compressionRequestsDesc, prometheus.CounterValue, float64(stats.TotalRequests))
	ch <- prometheus.MustNewConstMetric(compressedResponsesDesc, prometheus.CounterValue, float64(stats.BrotliRequests), EncodingBrotli)
	ch <- prometheus.MustNewConstMetric(compressedResponsesDesc, prometheus.CounterValue, float64(stats.GzipRequests), EncodingGzip)
	ch <- prometheus.MustNewConstMetric(compressionBytesSavedDesc, prometheus.CounterValue, float64(stats.BytesSaved))
}

// negotiate picks br over gzip from Accept-Encoding, honoring q=0
func (cm *CompressionMiddleware) negotiate(r *http.Request) string {
	if r.Method == http.MethodHead || r.Header.Get("Upgrade") != "" {
		return ""
	}
	accepted := parseAcceptEncoding(r.Header.Get("Accept-Encoding"))
	if q, ok := accepted[EncodingBrotli]; ok && q > 0 {
		return EncodingBrotli
	}
	if q, ok := accepted[EncodingGzip]; ok && q > 0 {
		return EncodingGzip
	}
	if q, ok := accepted["*"]; ok && q > 0 {
		return EncodingGzip
	}
	return ""
}

func (cm *CompressionMiddleware) compressible(h http.Header, size int) bool {
	if h.Get("Content-Encoding") != "" || size < cm.config.MinSizeBytes {
		return false
	}
	contentType := h.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(strings.ToLower(contentType))
	for _, t := range cm.config.CompressibleTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

func (cm *CompressionMiddleware) compress(content []byte, encoding string) ([]byte, error) {
	var buf bytes.Buffer
	var writer io.WriteCloser
	switch encoding {
	case EncodingBrotli:
		writer = brotli.NewWriterLevel(&buf, cm.config.BrotliLevel)
	default:
		gz, err := gzip.NewWriterLevel(&buf, cm.config.GzipLevel)
		if err != nil {
			return nil, err
		}
		writer = gz
	}

	if _, err := writer.Write(content); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseAcceptEncoding(header string) map[string]float64 {
	encodings := make(map[string]float64)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, params, _ := strings.Cut(part, ";")
		quality := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if q, err := strconv.ParseFloat(v, 64); err == nil {
				quality = q
			}
		}
		encodings[strings.ToLower(strings.TrimSpace(name))] = quality
	}
	return encodings
}
