package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"keeper/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger(t *testing.T) (*logging.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	return &logging.Logger{Logger: zap.New(core)}, logs
}

func TestRequestID(t *testing.T) {
	var ctxID any
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = r.Context().Value(logging.RequestIDKey)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	headerID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, headerID)
	assert.Equal(t, headerID, ctxID)
}

func TestLoggerRecordsRequests(t *testing.T) {
	logger, logs := observedLogger(t)
	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/api/projects", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/projects", fields["path"])
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
}

func TestLoggerSkipsHealthPolls(t *testing.T) {
	logger, logs := observedLogger(t)
	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, 0, logs.Len())
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	logger, logs := observedLogger(t)
	handler := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.Len())
}

func TestChainOrder(t *testing.T) {
	logger, _ := observedLogger(t)

	var sawID bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawID = r.Context().Value(logging.RequestIDKey).(string)
	})

	// RequestID listed first wraps the handler directly, so the ID is on
	// the context by the time the handler runs
	chained := Chain(inner, RequestID, Logger(logger), Recover(logger))
	chained.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	assert.True(t, sawID)
}
