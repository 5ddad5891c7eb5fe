// middleware/compress.go
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// compressLevel is the gzip/deflate level used for rendered pages.
const compressLevel = 5

// compressibleTypes are the response types worth compressing on the fly.
// Static assets are served pre-compressed by the file server instead.
var compressibleTypes = []string{
	"text/html",
	"text/plain",
	"application/json",
}

// Compress returns chi's compression middleware when enabled, otherwise an
// identity middleware, so callers can wire it unconditionally:
//
//	r.Use(middleware.Compress(cfg.EnableCompression))
func Compress(enabled bool) func(next http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Compress(compressLevel, compressibleTypes...)
}
