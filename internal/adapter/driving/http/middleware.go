package httphandler

import (
	"log/slog"
	"net/http"
	"time"
)

// maxRequestBody caps JSON request bodies. Credential payloads are a few
// hundred bytes.
const maxRequestBody = 64 << 10

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// requestAttrs identifies a request by its matched route and credential id.
// Request bodies and query strings are never logged: they may carry
// plaintext credential values.
func requestAttrs(r *http.Request) []any {
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	attrs := []any{"method", r.Method, "route", route}
	if id := r.PathValue("id"); id != "" {
		attrs = append(attrs, "credential_id", id)
	}
	return attrs
}

// loggingMiddleware logs each HTTP request with its route, status and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		attrs := append(requestAttrs(r),
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
		logger.Info("http request", attrs...)
	})
}

// credentialHeadersMiddleware keeps responses that describe credentials out
// of shared caches and limits request body size.
func credentialHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the route,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				attrs := append(requestAttrs(r), "panic", v)
				logger.Error("panic recovered", attrs...)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
