// Package resolver implements search-as-you-type lookup for one entity kind:
// keystrokes are debounced into suggestion fetches, a chosen suggestion is
// resolved to its canonical payload, and the result is committed to the
// selection store.  A manual mode commits a literal payload instead.
//
// Two sequence counters keep late responses from overwriting newer state:
// the query sequence guards the suggestion list and the selection token
// guards commits.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// Source performs the kind-specific remote calls.
type Source interface {
	// Suggest returns candidates for a non-blank fragment.
	Suggest(ctx context.Context, fragment string, limit int) ([]selection.Suggestion, error)
	// Detail resolves a chosen suggestion to its payload.
	Detail(ctx context.Context, item selection.Suggestion) (string, error)
}

// Profile carries the per-kind constants.
type Profile struct {
	Kind       selection.Kind
	ManualName string
	ManualID   string
}

var (
	DrugProfile    = Profile{Kind: selection.KindDrug, ManualName: "Custom Compound"}
	ProteinProfile = Profile{Kind: selection.KindProtein, ManualName: "Custom Protein", ManualID: "custom"}
)

// ProfileFor returns the profile for kind.
func ProfileFor(kind selection.Kind) Profile {
	if kind == selection.KindProtein {
		return ProteinProfile
	}
	return DrugProfile
}

// Config holds timing and size limits.
type Config struct {
	Debounce       time.Duration
	MaxSuggestions int
	RequestTimeout time.Duration
}

// DefaultConfig returns 300ms debounce, 6 suggestions and a 10s timeout.
func DefaultConfig() Config {
	return Config{Debounce: 300 * time.Millisecond, MaxSuggestions: 6, RequestTimeout: 10 * time.Second}
}

// State is a copy of the resolver's presentation state.
type State struct {
	Kind        selection.Kind         `json:"kind" yaml:"kind"`
	Mode        selection.Mode         `json:"mode" yaml:"mode"`
	Query       string                 `json:"query" yaml:"query"`
	Visible     bool                   `json:"suggestions_visible" yaml:"suggestions_visible"`
	Resolving   bool                   `json:"resolving" yaml:"resolving"`
	Suggestions []selection.Suggestion `json:"suggestions" yaml:"suggestions"`
	ManualText  string                 `json:"manual_text" yaml:"manual_text"`
}

// Resolver drives one kind.  Methods are safe for concurrent use.
type Resolver struct {
	profile Profile
	cfg     Config
	source  Source
	store   *selection.Store
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	baseCtx context.Context
	cancel  context.CancelFunc

	// commitMu serialises "check token, then commit" against other commits
	// from this resolver.  Store observers never take it.
	commitMu sync.Mutex

	mu          sync.Mutex
	mode        selection.Mode
	query       string
	manualText  string
	visible     bool
	resolving   bool
	suggestions []selection.Suggestion
	querySeq    uint64
	selToken    uint64
	timer       *time.Timer
	closed      bool
	listeners   []func(State)
}

// New builds a Resolver writing to store.
func New(profile Profile, cfg Config, source Source, store *selection.Store,
	logger logging.Logger, metrics *prometheus.AppMetrics) *Resolver {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultConfig().MaxSuggestions
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		profile: profile,
		cfg:     cfg,
		source:  source,
		store:   store,
		logger:  logger.Named("resolver." + profile.Kind.String()),
		metrics: metrics,
		baseCtx: ctx,
		cancel:  cancel,
		mode:    selection.ModeSearch,
	}
}

// Kind returns the entity kind.
func (r *Resolver) Kind() selection.Kind { return r.profile.Kind }

// OnChange registers fn to receive a State after every change.  fn runs on
// the goroutine that made the change and must not block.
func (r *Resolver) OnChange(fn func(State)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────────────────
// Search mode
// ─────────────────────────────────────────────────────────────────────────────

// QueryChange records new query text and schedules a suggestion fetch after
// the debounce window, replacing any pending one.  Blank text clears the
// suggestions immediately and invalidates in-flight fetches.
func (r *Resolver) QueryChange(text string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.query = text
	r.visible = true
	r.querySeq++
	seq := r.querySeq
	r.stopTimerLocked()
	if strings.TrimSpace(text) == "" {
		r.suggestions = nil
	} else {
		r.timer = time.AfterFunc(r.cfg.Debounce, func() { r.fetchSuggestions(seq, text) })
	}
	r.mu.Unlock()
	r.notify()
}

func (r *Resolver) fetchSuggestions(seq uint64, text string) {
	r.mu.Lock()
	if r.closed || seq != r.querySeq {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.baseCtx, r.cfg.RequestTimeout)
	items, err := r.source.Suggest(ctx, text, r.cfg.MaxSuggestions)
	cancel()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if seq != r.querySeq || text != r.query {
		r.mu.Unlock()
		r.metrics.RecordStale(r.profile.Kind.String(), "suggest")
		r.logger.Debug("discarded stale suggestions", logging.String(logging.FieldQuery, text))
		return
	}
	if err != nil {
		r.suggestions = nil
		r.mu.Unlock()
		r.logger.WithError(err).Warn("suggestion lookup failed", logging.String(logging.FieldQuery, text))
		r.notify()
		return
	}
	if len(items) > r.cfg.MaxSuggestions {
		items = items[:r.cfg.MaxSuggestions]
	}
	r.suggestions = append([]selection.Suggestion(nil), items...)
	r.mu.Unlock()
	r.notify()
}

// SelectAt selects the suggestion at index in the current list.
func (r *Resolver) SelectAt(ctx context.Context, index int) (selection.Selection, bool, error) {
	r.mu.Lock()
	if index < 0 || index >= len(r.suggestions) {
		n := len(r.suggestions)
		r.mu.Unlock()
		return selection.Selection{}, false, apperrors.New(apperrors.ErrCodeSuggestionOutOfRange, "").
			WithDetail(indexDetail(index, n))
	}
	item := r.suggestions[index]
	r.mu.Unlock()
	return r.Select(ctx, item)
}

// Select hides the suggestion list, shows item's label as the query, and
// resolves item to its payload.  The Selection is committed only if no later
// Select, mode toggle or manual submit happened meanwhile; committed reports
// whether it was.  A failed lookup commits an empty payload.
func (r *Resolver) Select(ctx context.Context, item selection.Suggestion) (selection.Selection, bool, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return selection.Selection{}, false, apperrors.New(apperrors.ErrCodeResolverClosed, "")
	}
	r.visible = false
	r.query = item.Label
	r.resolving = true
	r.selToken++
	token := r.selToken
	// A pending debounce for the text being replaced must not reopen the list.
	r.querySeq++
	r.stopTimerLocked()
	r.mu.Unlock()
	r.notify()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()
	stop := context.AfterFunc(r.baseCtx, cancel)
	defer stop()

	payload, err := r.source.Detail(ctx, item)
	if err != nil {
		r.logger.WithError(err).Warn("detail lookup failed", logging.String("key", item.Key()))
		payload = ""
	}

	sel := selection.Selection{Kind: r.profile.Kind, Name: item.Label, ID: item.Accession, Payload: payload}

	r.commitMu.Lock()
	r.mu.Lock()
	current := !r.closed && token == r.selToken
	if current {
		r.resolving = false
	}
	r.mu.Unlock()
	if current {
		r.store.Commit(sel)
	}
	r.commitMu.Unlock()

	if !current {
		r.metrics.RecordStale(r.profile.Kind.String(), "detail")
		r.logger.Debug("discarded stale detail", logging.String("key", item.Key()))
		return sel, false, nil
	}
	r.metrics.RecordCommit(r.profile.Kind.String(), string(selection.ModeSearch))
	r.notify()
	return sel, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Manual mode
// ─────────────────────────────────────────────────────────────────────────────

// ToggleMode switches between search and manual entry, clears all input
// state and commits the empty Selection for this kind.
func (r *Resolver) ToggleMode() selection.Mode {
	r.commitMu.Lock()
	r.mu.Lock()
	r.mode = r.mode.Toggle()
	mode := r.mode
	r.query = ""
	r.manualText = ""
	r.suggestions = nil
	r.visible = false
	r.resolving = false
	r.selToken++
	r.querySeq++
	r.stopTimerLocked()
	closed := r.closed
	r.mu.Unlock()
	if !closed {
		r.store.Commit(selection.Empty(r.profile.Kind))
	}
	r.commitMu.Unlock()

	r.logger.Debug("mode toggled", logging.String("mode", string(mode)))
	r.notify()
	return mode
}

// SetManualText records the manual-entry buffer.
func (r *Resolver) SetManualText(text string) {
	r.mu.Lock()
	r.manualText = text
	r.mu.Unlock()
	r.notify()
}

// SubmitManual commits the trimmed manual buffer as the payload with no
// remote calls and no validation.  A blank buffer is a no-op.
func (r *Resolver) SubmitManual() (selection.Selection, bool) {
	r.commitMu.Lock()
	r.mu.Lock()
	value := strings.TrimSpace(r.manualText)
	if value == "" || r.closed {
		r.mu.Unlock()
		r.commitMu.Unlock()
		return selection.Selection{}, false
	}
	r.selToken++
	r.resolving = false
	r.mu.Unlock()

	sel := selection.Selection{
		Kind:    r.profile.Kind,
		Name:    r.profile.ManualName,
		ID:      r.profile.ManualID,
		Payload: value,
	}
	r.store.Commit(sel)
	r.commitMu.Unlock()

	r.metrics.RecordCommit(r.profile.Kind.String(), string(selection.ModeManual))
	r.notify()
	return sel, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Inspection / lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Snapshot returns a copy of the current state.
func (r *Resolver) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resolver) snapshotLocked() State {
	return State{
		Kind:        r.profile.Kind,
		Mode:        r.mode,
		Query:       r.query,
		Visible:     r.visible,
		Resolving:   r.resolving,
		Suggestions: append([]selection.Suggestion(nil), r.suggestions...),
		ManualText:  r.manualText,
	}
}

// Close stops the debounce timer and cancels in-flight lookups.  Responses
// arriving after Close are dropped.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.stopTimerLocked()
	r.mu.Unlock()
	r.cancel()
}

func (r *Resolver) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) notify() {
	r.mu.Lock()
	if len(r.listeners) == 0 {
		r.mu.Unlock()
		return
	}
	st := r.snapshotLocked()
	listeners := append([]func(State){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
}

func indexDetail(index, n int) string {
	return fmt.Sprintf("index=%d suggestions=%d", index, n)
}

//Personal.AI order the ending
