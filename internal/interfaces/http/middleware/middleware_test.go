package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

// ─────────────────────────────────────────────────────────────────────────────
// CORS
// ─────────────────────────────────────────────────────────────────────────────

func TestCORS_Preflight(t *testing.T) {
	h := CORS(DefaultCORSConfig([]string{"https://app.example.com"}))(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CORSConfig
		origin  string
		allowed string
	}{
		{"wildcard", DefaultCORSConfig([]string{"*"}), "https://any.test", "*"},
		{"listed", DefaultCORSConfig([]string{"https://a.test"}), "https://A.test", "https://A.test"},
		{"not listed", DefaultCORSConfig([]string{"https://a.test"}), "https://b.test", ""},
		{"subdomain", func() CORSConfig {
			c := DefaultCORSConfig([]string{"*.example.com"})
			c.AllowWildcard = true
			return c
		}(), "https://lab.example.com", "https://lab.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			CORS(tt.cfg)(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.allowed, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Rate limit
// ─────────────────────────────────────────────────────────────────────────────

func TestTokenBucketLimiter_RefillsOverTime(t *testing.T) {
	l := NewTokenBucketLimiter(1, 2, 0)
	defer l.Stop()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, info := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 1, info.Remaining)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, _ = l.Allow("a")
	assert.False(t, ok)

	ok, _ = l.Allow("b")
	assert.True(t, ok, "keys have independent buckets")

	now = now.Add(1500 * time.Millisecond)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 2, l.BucketCount())
}

func TestTokenBucketLimiter_Cleanup(t *testing.T) {
	l := NewTokenBucketLimiter(1, 1, 0)
	l.cleanupInterval = time.Minute
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	l.Allow("a")

	now = now.Add(2 * time.Minute)
	l.cleanup()
	assert.Equal(t, 0, l.BucketCount())
	l.Stop()
	l.Stop()
}

func TestRateLimit_RejectsAndSkips(t *testing.T) {
	l := NewTokenBucketLimiter(0.01, 1, 0)
	defer l.Stop()
	h := RateLimit(l, DefaultRateLimitConfig(0.01, 1))(okHandler)

	call := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, call("/api/v1/sessions").Code)
	rec := call("/api/v1/sessions")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.JSONEq(t, `{"code":"COMMON_007","message":"rate limit exceeded, please retry later"}`, rec.Body.String())
	assert.Equal(t, http.StatusOK, call("/healthz").Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Logging
// ─────────────────────────────────────────────────────────────────────────────

func TestRequestLogging_LevelsAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.NewLoggerFromCore(core)

	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			seenID = logging.RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	h := chimw.RequestID(RequestLogging(logger, DefaultLoggingConfig())(inner))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, 500, entries[1].ContextMap()["status"])
	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, entries[1].ContextMap()[logging.FieldRequestID])
}

func TestRequestLogging_SlowRequestWarns(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := LoggingConfig{SlowThreshold: time.Nanosecond}
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	RequestLogging(logging.NewLoggerFromCore(core), cfg)(slow).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics
// ─────────────────────────────────────────────────────────────────────────────

func TestRequestMetrics_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestMetrics(prometheus.NewNoopAppMetrics()))
	r.Get("/api/v1/sessions/{id}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

//Personal.AI order the ending
