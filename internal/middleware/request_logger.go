// Package middleware provides HTTP middleware for the console API server.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/logging"
)

// NewRequestLogger returns a middleware that logs each request as one
// structured line: method, path, status, duration and the request ID set by
// chi's RequestID middleware. Downstream code gets a logger carrying the
// request ID through logging.FromContext.
//
// Wire it after chimiddleware.RequestID so the request ID is available.
func NewRequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimiddleware.GetReqID(r.Context())

			reqLog := log
			if reqID != "" {
				reqLog = log.With(zap.String("request_id", reqID))
			}
			r = r.WithContext(logging.WithLogger(r.Context(), reqLog))

			// WrapResponseWriter intercepts WriteHeader so the status can be
			// read after the downstream handler has run.
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLog.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}
