package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/middleware"
)

// TestRequestLogger_logsRequestFields verifies that the middleware writes one
// entry with method, path, status, duration and the request ID placed in
// context by chi's RequestID middleware.
func TestRequestLogger_logsRequestFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	var handlerLogged bool
	h := middleware.NewRequestLogger(logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logging.FromContext(r.Context(), zap.NewNop()).Info("inside")
			handlerLogged = true
			w.WriteHeader(http.StatusTeapot)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/console/search", nil)
	ctx := context.WithValue(req.Context(), chimiddleware.RequestIDKey, "test-req-id")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, handlerLogged)
	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)

	inside := entries[0].ContextMap()
	assert.Equal(t, "test-req-id", inside["request_id"], "handlers inherit the request logger")

	fields := entries[1].ContextMap()
	assert.Equal(t, "request", entries[1].Message)
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/console/search", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "test-req-id", fields["request_id"])
	assert.Contains(t, fields, "duration_ms")
}

// TestRequestLogger_implicitOK verifies that a handler that never calls
// WriteHeader is logged as 200.
func TestRequestLogger_implicitOK(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := middleware.NewRequestLogger(zap.New(core))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, http.StatusOK, logs.All()[0].ContextMap()["status"])
}
