// Package analysis runs the scoring step once both a drug and a protein have
// resolved payloads, and holds the most recent result for display.
package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/dtiscope/internal/domain/event"
	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

var (
	ErrNotReady       = apperrors.New(apperrors.ErrCodeAnalysisNotReady, "")
	ErrAlreadyRunning = apperrors.New(apperrors.ErrCodeAnalysisAlreadyRunning, "")
)

const publishTimeout = 5 * time.Second

// Outcome describes a finished run.
type Outcome struct {
	Text     string
	Duration time.Duration
	// Discarded is set when a selection changed while scoring; Text is then
	// not stored.
	Discarded bool
}

// Status is a copy of the trigger's visible state.
type Status struct {
	CanRun    bool   `json:"can_run" yaml:"can_run"`
	Running   bool   `json:"running" yaml:"running"`
	Result    string `json:"result,omitempty" yaml:"result,omitempty"`
	HasResult bool   `json:"has_result" yaml:"has_result"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Option configures a Trigger.
type Option func(*Trigger)

func WithLogger(l logging.Logger) Option { return func(t *Trigger) { t.logger = l } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(t *Trigger) { t.metrics = m } }

func WithPublisher(p event.Publisher) Option { return func(t *Trigger) { t.publisher = p } }

// WithSessionID tags log lines and events.
func WithSessionID(id string) Option { return func(t *Trigger) { t.sessionID = id } }

// Trigger gates and runs the Scorer.
type Trigger struct {
	store     *selection.Store
	scorer    Scorer
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
	publisher event.Publisher
	sessionID string

	running atomic.Bool

	mu        sync.Mutex
	result    string
	hasResult bool
	lastErr   error
	listeners []func()
}

// NewTrigger returns a Trigger reading from store.  Every commit to store
// clears the stored result.
func NewTrigger(store *selection.Store, scorer Scorer, opts ...Option) *Trigger {
	t := &Trigger{
		store:     store,
		scorer:    scorer,
		logger:    logging.NewNopLogger(),
		metrics:   prometheus.NewNoopAppMetrics(),
		publisher: event.NopPublisher{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("analysis")
	if t.sessionID != "" {
		t.logger = t.logger.With(logging.String(logging.FieldSessionID, t.sessionID))
	}
	store.Subscribe(t.onCommit)
	return t
}

func (t *Trigger) onCommit(selection.Selection, uint64) {
	t.mu.Lock()
	changed := t.hasResult || t.lastErr != nil
	t.result, t.hasResult, t.lastErr = "", false, nil
	t.mu.Unlock()
	if changed {
		t.notify()
	}
}

// OnChange registers fn to be called when the status changes.
func (t *Trigger) OnChange(fn func()) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// CanRun reports whether both payloads are non-empty.
func (t *Trigger) CanRun() bool {
	drug, protein, _ := t.store.Pair()
	return drug.Resolved() && protein.Resolved()
}

// Running reports whether a run is in progress.
func (t *Trigger) Running() bool { return t.running.Load() }

// Result returns the stored display string.
func (t *Trigger) Result() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.hasResult
}

// LastError returns the error of the last failed run, cleared by the next
// commit or run.
func (t *Trigger) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Status returns a snapshot.
func (t *Trigger) Status() Status {
	s := Status{CanRun: t.CanRun(), Running: t.Running()}
	t.mu.Lock()
	s.Result, s.HasResult = t.result, t.hasResult
	if t.lastErr != nil {
		s.Error = t.lastErr.Error()
	}
	t.mu.Unlock()
	return s
}

// Run scores the current pair.  It returns ErrNotReady unless both payloads
// are present and ErrAlreadyRunning while another run is pending.  The result
// is stored only if no commit happened during scoring.
func (t *Trigger) Run(ctx context.Context) (Outcome, error) {
	p, err := t.acquire()
	if err != nil {
		return Outcome{}, err
	}
	return t.execute(ctx, p)
}

// Start performs Run's checks synchronously and scores in a new goroutine.
// The returned channel receives the outcome once.
func (t *Trigger) Start(ctx context.Context) (<-chan Completion, error) {
	p, err := t.acquire()
	if err != nil {
		return nil, err
	}
	done := make(chan Completion, 1)
	go func() {
		out, err := t.execute(ctx, p)
		done <- Completion{Outcome: out, Err: err}
	}()
	return done, nil
}

// Completion is delivered by Start.
type Completion struct {
	Outcome Outcome
	Err     error
}

type pair struct {
	drug, protein selection.Selection
	version       uint64
}

func (t *Trigger) acquire() (pair, error) {
	if !t.CanRun() {
		t.metrics.AnalysisRejected.WithLabelValues("not_ready").Inc()
		return pair{}, ErrNotReady
	}
	if !t.running.CompareAndSwap(false, true) {
		t.metrics.AnalysisRejected.WithLabelValues("running").Inc()
		return pair{}, ErrAlreadyRunning
	}
	drug, protein, version := t.store.Pair()
	if !drug.Resolved() || !protein.Resolved() {
		t.running.Store(false)
		t.metrics.AnalysisRejected.WithLabelValues("not_ready").Inc()
		return pair{}, ErrNotReady
	}
	t.mu.Lock()
	t.lastErr = nil
	t.mu.Unlock()
	t.notify()
	return pair{drug: drug, protein: protein, version: version}, nil
}

func (t *Trigger) execute(ctx context.Context, p pair) (Outcome, error) {
	defer func() {
		t.running.Store(false)
		t.notify()
	}()
	drug, protein := p.drug, p.protein

	log := t.logger.WithContext(ctx)
	log.Info("analysis started",
		logging.String("drug", drug.Name),
		logging.String("protein", protein.Name),
		logging.String("scorer", t.scorer.Name()))

	start := time.Now()
	text, err := t.scorer.Score(ctx, drug.Payload, protein.Payload)
	elapsed := time.Since(start)
	t.metrics.RecordAnalysis(t.scorer.Name(), err, elapsed)

	finished := event.AnalysisFinished{
		SessionID:   t.sessionID,
		Scorer:      t.scorer.Name(),
		DrugName:    drug.Name,
		ProteinName: protein.Name,
		DurationMs:  elapsed.Milliseconds(),
		FinishedAt:  time.Now().UTC(),
	}

	if err != nil {
		if !apperrors.IsCode(err, apperrors.ErrCodeAnalysisFailed) {
			err = apperrors.Wrap(err, apperrors.ErrCodeAnalysisFailed, "analysis failed")
		}
		t.mu.Lock()
		t.lastErr = err
		t.mu.Unlock()
		log.WithError(err).Error("analysis failed", logging.Duration("elapsed", elapsed))
		finished.Error = err.Error()
		t.publish(ctx, event.TypeAnalysisFailed, finished)
		return Outcome{Duration: elapsed}, err
	}

	out := Outcome{Text: text, Duration: elapsed}
	t.mu.Lock()
	if t.store.Version() == p.version {
		t.result, t.hasResult = text, true
	} else {
		out.Discarded = true
	}
	t.mu.Unlock()

	if out.Discarded {
		log.Info("analysis result discarded, selection changed", logging.Duration("elapsed", elapsed))
	} else {
		log.Info("analysis completed", logging.String("result", text), logging.Duration("elapsed", elapsed))
	}
	finished.Result = text
	finished.Discarded = out.Discarded
	t.publish(ctx, event.TypeAnalysisCompleted, finished)
	return out, nil
}

func (t *Trigger) publish(ctx context.Context, eventType string, payload event.AnalysisFinished) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := t.publisher.Publish(pctx, eventType, t.sessionID, payload); err != nil {
		t.logger.WithError(err).Warn("event publish failed", logging.String("event_type", eventType))
	}
}

func (t *Trigger) notify() {
	t.mu.Lock()
	listeners := append([]func(){}, t.listeners...)
	t.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

//Personal.AI order the ending
