package prometheus

import (
	"strconv"
	"time"
)

// Outcome label values shared by the Record helpers.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

// AppMetrics holds the metric vectors recorded by dtiscope components.
type AppMetrics struct {
	// Remote lookups
	LookupRequestsTotal CounterVec   // source, op, outcome
	LookupDuration      HistogramVec // source, op

	// Resolver
	StaleResponsesTotal CounterVec // kind, stage (suggest|detail)
	CommitsTotal        CounterVec // kind, mode

	// Cache
	CacheHitsTotal   CounterVec // tier
	CacheMissesTotal CounterVec // tier

	// Analysis
	AnalysisRunsTotal CounterVec   // scorer, outcome
	AnalysisDuration  HistogramVec // scorer
	AnalysisRejected  CounterVec   // reason

	// Sessions
	ActiveSessions GaugeVec

	// HTTP
	HTTPRequestsTotal   CounterVec   // method, route, status
	HTTPRequestDuration HistogramVec // method, route
	WebsocketClients    GaugeVec
}

// Buckets.
var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultLookupDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10}
	DefaultScoreDurationBuckets  = []float64{.1, .5, 1, 1.5, 2, 5, 10, 30}
)

// NewAppMetrics registers every metric on c.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		LookupRequestsTotal: c.RegisterCounter("lookup_requests_total", "Remote lookup calls by source, operation and outcome.", "source", "op", "outcome"),
		LookupDuration:      c.RegisterHistogram("lookup_duration_seconds", "Remote lookup latency.", DefaultLookupDurationBuckets, "source", "op"),

		StaleResponsesTotal: c.RegisterCounter("resolver_stale_responses_total", "Responses discarded because a newer query or selection superseded them.", "kind", "stage"),
		CommitsTotal:        c.RegisterCounter("resolver_commits_total", "Selections committed to the store.", "kind", "mode"),

		CacheHitsTotal:   c.RegisterCounter("cache_hits_total", "Lookup cache hits.", "tier"),
		CacheMissesTotal: c.RegisterCounter("cache_misses_total", "Lookup cache misses.", "tier"),

		AnalysisRunsTotal: c.RegisterCounter("analysis_runs_total", "Scoring runs by scorer and outcome.", "scorer", "outcome"),
		AnalysisDuration:  c.RegisterHistogram("analysis_duration_seconds", "Scoring latency.", DefaultScoreDurationBuckets, "scorer"),
		AnalysisRejected:  c.RegisterCounter("analysis_rejected_total", "Run requests rejected before scoring.", "reason"),

		ActiveSessions: c.RegisterGauge("sessions_active", "Sessions currently held in memory."),

		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests by method, route and status.", "method", "route", "status"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency.", DefaultHTTPDurationBuckets, "method", "route"),
		WebsocketClients:    c.RegisterGauge("websocket_clients", "Open websocket connections."),
	}
}

// NewNoopAppMetrics returns AppMetrics backed by the no-op collector.
func NewNoopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNoopCollector())
}

// RecordLookup records one remote lookup call.
func (m *AppMetrics) RecordLookup(source, op, outcome string, d time.Duration) {
	m.LookupRequestsTotal.WithLabelValues(source, op, outcome).Inc()
	m.LookupDuration.WithLabelValues(source, op).Observe(d.Seconds())
}

// RecordStale records a response dropped by the last-write-wins rule.
func (m *AppMetrics) RecordStale(kind, stage string) {
	m.StaleResponsesTotal.WithLabelValues(kind, stage).Inc()
}

// RecordCommit records a selection commit.
func (m *AppMetrics) RecordCommit(kind, mode string) {
	m.CommitsTotal.WithLabelValues(kind, mode).Inc()
}

// RecordCache records a cache lookup against tier.
func (m *AppMetrics) RecordCache(tier string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(tier).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(tier).Inc()
}

// RecordAnalysis records a finished scoring run.
func (m *AppMetrics) RecordAnalysis(scorer string, err error, d time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.AnalysisRunsTotal.WithLabelValues(scorer, outcome).Inc()
	m.AnalysisDuration.WithLabelValues(scorer).Observe(d.Seconds())
}

// RecordHTTPRequest records a served HTTP request.
func (m *AppMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

//Personal.AI order the ending
