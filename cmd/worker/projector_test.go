package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/dtiscope/internal/domain/event"
	"github.com/turtacn/dtiscope/internal/infrastructure/cache"
	"github.com/turtacn/dtiscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
)

type flakyCache struct {
	cache.Cache
	failures atomic.Int32
}

func (f *flakyCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.failures.Add(-1) >= 0 {
		return errors.New("connection reset")
	}
	return f.Cache.Set(ctx, key, value, ttl)
}

func newTestProjector(t *testing.T, store cache.Cache) (*Projector, prometheus.MetricsCollector) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	p := NewProjector(store, time.Hour, collector, logging.NewNopLogger())
	p.baseBackoff = time.Millisecond
	return p, collector
}

func envelope(t *testing.T, eventType string, payload interface{}) *kafka.EventEnvelope {
	t.Helper()
	env, err := kafka.NewEventEnvelope(eventType, payload)
	require.NoError(t, err)
	return env
}

func scrape(t *testing.T, collector prometheus.MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestProjector_SelectionCommitted(t *testing.T) {
	store := cache.NewMemory(16, time.Hour)
	p, collector := newTestProjector(t, store)
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, envelope(t, event.TypeSelectionCommitted, event.SelectionCommitted{
		SessionID: "s1", Kind: "drug", Name: "Aspirin", PayloadLength: 24, Version: 1,
	})))
	require.NoError(t, p.Handle(ctx, envelope(t, event.TypeSelectionCommitted, event.SelectionCommitted{
		SessionID: "s1", Kind: "drug", Name: "Ibuprofen", PayloadLength: 26, Version: 2,
	})))

	raw, err := store.Get(ctx, SelectionKey("s1", "drug"))
	require.NoError(t, err)
	var got event.SelectionCommitted
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "Ibuprofen", got.Name)
	assert.Equal(t, uint64(2), got.Version)

	assert.Contains(t, scrape(t, collector),
		`test_worker_events_total{event_type="selection.committed",outcome="projected"} 2`)
}

func TestProjector_AnalysisSkipsDiscarded(t *testing.T) {
	store := cache.NewMemory(16, time.Hour)
	p, collector := newTestProjector(t, store)
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, envelope(t, event.TypeAnalysisCompleted, event.AnalysisFinished{
		SessionID: "s1", Scorer: "stub", Result: "Predicted IC50: 10.00 nM",
	})))
	require.NoError(t, p.Handle(ctx, envelope(t, event.TypeAnalysisCompleted, event.AnalysisFinished{
		SessionID: "s1", Scorer: "stub", Result: "Predicted IC50: 99.00 nM", Discarded: true,
	})))

	raw, err := store.Get(ctx, AnalysisKey("s1"))
	require.NoError(t, err)
	assert.Contains(t, raw, "10.00 nM")

	metrics := scrape(t, collector)
	assert.Contains(t, metrics, `test_worker_events_total{event_type="analysis.completed",outcome="projected"} 1`)
	assert.Contains(t, metrics, `test_worker_events_total{event_type="analysis.completed",outcome="ignored"} 1`)
}

func TestProjector_UnknownEventIgnored(t *testing.T) {
	store := cache.NewMemory(16, time.Hour)
	p, collector := newTestProjector(t, store)

	require.NoError(t, p.Handle(context.Background(), envelope(t, "session.closed", map[string]string{"session_id": "s1"})))
	assert.Contains(t, scrape(t, collector), `test_worker_events_total{event_type="session.closed",outcome="ignored"} 1`)
}

func TestProjector_RetriesTransientFailures(t *testing.T) {
	store := &flakyCache{Cache: cache.NewMemory(16, time.Hour)}
	store.failures.Store(2)
	p, _ := newTestProjector(t, store)
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, envelope(t, event.TypeAnalysisFailed, event.AnalysisFinished{
		SessionID: "s2", Scorer: "http", Error: "scorer unavailable",
	})))
	raw, err := store.Get(ctx, AnalysisKey("s2"))
	require.NoError(t, err)
	assert.Contains(t, raw, "scorer unavailable")
}

func TestProjector_GivesUpAfterRetries(t *testing.T) {
	store := &flakyCache{Cache: cache.NewMemory(16, time.Hour)}
	store.failures.Store(100)
	p, collector := newTestProjector(t, store)

	err := p.Handle(context.Background(), envelope(t, event.TypeSelectionCommitted, event.SelectionCommitted{SessionID: "s3", Kind: "protein"}))
	require.NoError(t, err)
	assert.Equal(t, int32(100-(defaultMaxRetries+1)), store.failures.Load())
	assert.Contains(t, scrape(t, collector), `test_worker_events_total{event_type="selection.committed",outcome="failed"} 1`)
}

//Personal.AI order the ending
