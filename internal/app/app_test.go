package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/dtiscope/internal/config"
)

func testConfig() *config.Config {
	cfg := config.NewDefault()
	cfg.Metrics.Enabled = true
	return cfg
}

func TestNew_DefaultsAssemble(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "memory", a.Cache.Tier())
	assert.Equal(t, "stub", a.Scorer.Name())
	assert.NotNil(t, a.Collector)

	s, err := a.Sessions.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
}

func TestHandler_ProbesAndMetrics(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()
	h, stop := a.Handler("test")
	defer stop()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "redis", a.Cache.Tier())
	assert.NoError(t, a.Cache.Ping(context.Background()))
	assert.NoError(t, a.Close())
}

func TestNew_RejectsUnknownScorer(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Scorer = "quantum"

	var (
		a   *App
		err error
	)
	require.NotPanics(t, func() { a, err = New(context.Background(), cfg, nil) })
	assert.Error(t, err)
	assert.Nil(t, a)
}

func TestNew_FailureClosesBuiltComponents(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Analysis.Scorer = "quantum"

	var err error
	require.NotPanics(t, func() { _, err = New(context.Background(), cfg, nil) })
	require.Error(t, err)
	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestNew_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.Cache.Backend = config.CacheBackendRedis
	cfg.Redis.Addr = addr
	cfg.Redis.DialTimeout = 200 * time.Millisecond

	var err error
	require.NotPanics(t, func() { _, err = New(context.Background(), cfg, nil) })
	assert.Error(t, err)
}

func TestClose_NilApp(t *testing.T) {
	var a *App
	assert.NoError(t, a.Close())
}

//Personal.AI order the ending
