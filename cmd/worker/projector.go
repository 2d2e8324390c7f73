package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/turtacn/dtiscope/internal/domain/event"
	"github.com/turtacn/dtiscope/internal/infrastructure/cache"
	"github.com/turtacn/dtiscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
)

// Outcomes recorded on the processed-events counter.
const (
	outcomeProjected = "projected"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
)

// SelectionKey is where the latest committed selection of a session is kept.
func SelectionKey(sessionID, kind string) string {
	return cache.Key("session", sessionID, kind)
}

// AnalysisKey is where the latest non-discarded analysis of a session is kept.
func AnalysisKey(sessionID string) string {
	return cache.Key("session", sessionID, "analysis")
}

// Projector folds the event stream into per-session records in the cache so
// other services can read the last known state without replaying the topic.
type Projector struct {
	store   cache.Cache
	ttl     time.Duration
	logger  logging.Logger
	events  prometheus.CounterVec
	latency prometheus.HistogramVec

	maxRetries  int
	baseBackoff time.Duration
}

// NewProjector registers its metrics on collector and writes records with ttl.
func NewProjector(store cache.Cache, ttl time.Duration, collector prometheus.MetricsCollector, logger logging.Logger) *Projector {
	if collector == nil {
		collector = prometheus.NewNoopCollector()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Projector{
		store:  store,
		ttl:    ttl,
		logger: logger.Named("projector"),
		events: collector.RegisterCounter("worker_events_total",
			"Events processed by the worker.", "event_type", "outcome"),
		latency: collector.RegisterHistogram("worker_event_duration_seconds",
			"Time to project one event.", nil, "event_type"),
		maxRetries:  defaultMaxRetries,
		baseBackoff: time.Second,
	}
}

// Handle projects env, retrying transient store failures.  A record that still
// fails is logged and counted; the stream moves on.
func (p *Projector) Handle(ctx context.Context, env *kafka.EventEnvelope) error {
	timer := prometheus.NewTimer()
	defer timer.ObserveDuration(p.latency.WithLabelValues(env.EventType))

	apply, ok := p.projection(env)
	if !ok {
		p.events.WithLabelValues(env.EventType, outcomeIgnored).Inc()
		return nil
	}

	if err := p.withRetry(ctx, env, apply); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.events.WithLabelValues(env.EventType, outcomeFailed).Inc()
		p.logger.WithError(err).Error("event projection failed",
			logging.String("event_id", env.EventID),
			logging.String("event_type", env.EventType))
		return nil
	}
	p.events.WithLabelValues(env.EventType, outcomeProjected).Inc()
	return nil
}

func (p *Projector) projection(env *kafka.EventEnvelope) (func(context.Context) error, bool) {
	switch env.EventType {
	case event.TypeSelectionCommitted:
		var ev event.SelectionCommitted
		if err := env.DecodePayload(&ev); err != nil {
			return p.decodeFailure(err), true
		}
		return func(ctx context.Context) error {
			return p.put(ctx, SelectionKey(ev.SessionID, ev.Kind), ev)
		}, true
	case event.TypeAnalysisCompleted, event.TypeAnalysisFailed:
		var ev event.AnalysisFinished
		if err := env.DecodePayload(&ev); err != nil {
			return p.decodeFailure(err), true
		}
		if ev.Discarded {
			return nil, false
		}
		return func(ctx context.Context) error {
			return p.put(ctx, AnalysisKey(ev.SessionID), ev)
		}, true
	default:
		return nil, false
	}
}

func (p *Projector) decodeFailure(err error) func(context.Context) error {
	return func(context.Context) error { return errPermanent{err} }
}

func (p *Projector) put(ctx context.Context, key string, record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errPermanent{err}
	}
	return p.store.Set(ctx, key, string(data), p.ttl)
}

// withRetry backs off exponentially: base, 2*base, 4*base.
func (p *Projector) withRetry(ctx context.Context, env *kafka.EventEnvelope, apply func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.baseBackoff << uint(attempt-1)
			p.logger.Warn("retrying event",
				logging.String("event_id", env.EventID),
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		hctx, cancel := context.WithTimeout(ctx, defaultHandlerTimeout)
		lastErr = apply(hctx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if perm, ok := lastErr.(errPermanent); ok {
			return perm.err
		}
	}
	return fmt.Errorf("exhausted %d retries: %w", p.maxRetries, lastErr)
}

type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }

//Personal.AI order the ending
