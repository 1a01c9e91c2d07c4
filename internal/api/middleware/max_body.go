package middleware

import (
	"net/http"

	"github.com/cloo-solutions/finsight/internal/api"
)

// MaxBodyBytes caps request body size. Extracted documents arrive as
// JSON text payloads, so the cap bounds memory per in-flight upload.
// A declared Content-Length over the cap is rejected up front; chunked
// bodies are cut off by MaxBytesReader when the cap is crossed.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength != -1 && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
