package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

// ErrInvalidCompressionLevel is returned when CompressConfig.Level is
// outside the valid compression level range.
var ErrInvalidCompressionLevel = errors.New("compress: invalid compression level")

// CompressConfig configures the Compress middleware behaviour.
type CompressConfig struct {
	// Level is the compression level for both gzip and deflate. When zero,
	// flate.DefaultCompression is used. Must be in
	// [flate.HuffmanOnly, flate.BestCompression] or zero.
	Level int

	// MinLength is the minimum buffered body size in bytes before
	// compression is applied. Streaming responses are always compressed
	// since their size is unknown up front. When zero, all responses are
	// compressed.
	MinLength int
}

// compressor is the common interface implemented by both gzip.Writer and
// flate.Writer.
type compressor interface {
	io.WriteCloser
	Flush() error
	Reset(w io.Writer)
}

// Compress returns a middleware that compresses response bodies using gzip
// or deflate when the client advertises support via the Accept-Encoding
// header. Gzip is preferred over deflate when the client accepts both.
// Writers are pooled across requests.
//
// Compression is skipped when:
//   - The request does not include "gzip" or "deflate" in Accept-Encoding
//   - The response already has a Content-Encoding header
//   - The response Content-Type is an inherently compressed format
//     (image/*, video/*, audio/*, or common archive types)
//
// It returns ErrInvalidCompressionLevel if Level is outside the valid range.
func Compress(cfg CompressConfig) (Middleware, error) {
	level := cfg.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, ErrInvalidCompressionLevel
	}

	minLength := cfg.MinLength

	gzipPool := &sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		},
	}

	deflatePool := &sync.Pool{
		New: func() any {
			w, _ := flate.NewWriter(io.Discard, level)
			return w
		},
	}

	poolFor := func(encoding string) *sync.Pool {
		if encoding == "gzip" {
			return gzipPool
		}
		return deflatePool
	}

	return func(next routing.Handler) routing.Handler {
		return func(ctx context.Context, req *web.Request) (*web.Response, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}

			encoding := selectEncoding(req.Header("Accept-Encoding"))
			if encoding == "" || !compressible(resp.Headers) {
				return resp, nil
			}

			if resp.Streaming() {
				compressStream(resp, encoding, poolFor(encoding))
				return resp, nil
			}

			if len(resp.Body()) < minLength {
				return resp, nil
			}

			if err := compressBody(resp, encoding, poolFor(encoding)); err != nil {
				return nil, err
			}
			return resp, nil
		}
	}, nil
}

func compressible(h *web.Headers) bool {
	return !h.Has("Content-Encoding") && !isCompressedContentType(h.Get("Content-Type"))
}

// compressBody replaces the buffered body with its compressed form.
func compressBody(resp *web.Response, encoding string, pool *sync.Pool) error {
	var buf bytes.Buffer

	cw := pool.Get().(compressor)
	cw.Reset(&buf)

	if _, err := cw.Write(resp.Body()); err != nil {
		pool.Put(cw)
		return err
	}
	if err := cw.Close(); err != nil {
		pool.Put(cw)
		return err
	}
	pool.Put(cw)

	resp.SetBody(buf.Bytes())
	resp.Headers.Set("Content-Encoding", encoding)
	resp.Headers.Add("Vary", "Accept-Encoding")
	resp.Headers.Del("Content-Length")
	return nil
}

// compressStream wraps the stream producer so each chunk passes through the
// compressor, flushing after every chunk to preserve incremental delivery.
func compressStream(resp *web.Response, encoding string, pool *sync.Pool) {
	inner := resp.StreamBody()

	resp.SetStream(func(ctx context.Context, write func(p []byte) error) error {
		sink := &funcWriter{write: write}

		cw := pool.Get().(compressor)
		cw.Reset(sink)
		defer pool.Put(cw)

		err := inner(ctx, func(p []byte) error {
			if _, werr := cw.Write(p); werr != nil {
				return werr
			}
			return cw.Flush()
		})
		if cerr := cw.Close(); err == nil {
			err = cerr
		}
		return err
	})

	resp.Headers.Set("Content-Encoding", encoding)
	resp.Headers.Add("Vary", "Accept-Encoding")
	resp.Headers.Del("Content-Length")
}

type funcWriter struct {
	write func(p []byte) error
}

func (w *funcWriter) Write(p []byte) (int, error) {
	// The compressor may retain p; chunk sinks are allowed to as well, so
	// copy before handing off.
	out := make([]byte, len(p))
	copy(out, p)
	if err := w.write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// selectEncoding returns the best supported encoding from the
// Accept-Encoding header value. It returns "gzip", "deflate", or "" if
// neither is accepted. When both are accepted with equal quality, gzip is
// preferred.
func selectEncoding(acceptEncoding string) string {
	var (
		gzipQ    float64 = -1
		deflateQ float64 = -1
		wildQ    float64 = -1
	)

	for _, part := range strings.Split(acceptEncoding, ",") {
		name, quality := parseEncoding(strings.TrimSpace(part))
		q := parseQuality(quality)

		switch name {
		case "gzip":
			gzipQ = q
		case "deflate":
			deflateQ = q
		case "*":
			wildQ = q
		}
	}

	// Apply wildcard to unspecified encodings.
	if gzipQ < 0 && wildQ >= 0 {
		gzipQ = wildQ
	}

	if deflateQ < 0 && wildQ >= 0 {
		deflateQ = wildQ
	}

	// Prefer gzip when quality is equal or higher.
	if gzipQ > 0 && gzipQ >= deflateQ {
		return "gzip"
	}

	if deflateQ > 0 {
		return "deflate"
	}

	return ""
}

// parseQuality converts a quality string to a float64.
// An empty string defaults to 1.0, the implicit full quality in RFC 9110.
func parseQuality(s string) float64 {
	if s == "" {
		return 1.0
	}

	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return q
}

// parseEncoding splits an encoding token into the encoding name and quality
// value. For "gzip;q=0.8" it returns ("gzip", "0.8"). When no quality value
// is present it returns the encoding and an empty string.
func parseEncoding(s string) (encoding, quality string) {
	encoding, params, ok := strings.Cut(s, ";")
	if !ok {
		return strings.TrimSpace(encoding), ""
	}

	params = strings.TrimSpace(params)
	if key, val, found := strings.Cut(params, "="); found && strings.TrimSpace(key) == "q" {
		return strings.TrimSpace(encoding), strings.TrimSpace(val)
	}

	return strings.TrimSpace(encoding), ""
}

// compressedContentTypes contains content type prefixes and exact types
// that are already compressed and should not be double-compressed.
var compressedContentTypes = []string{
	"image/",
	"video/",
	"audio/",
	"application/zip",
	"application/gzip",
	"application/x-gzip",
	"application/x-bzip2",
	"application/x-xz",
	"application/zstd",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
}

// isCompressedContentType reports whether the content type is an
// inherently compressed format.
func isCompressedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))

	for _, prefix := range compressedContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}

	return false
}
