// Package session groups one selection store, a resolver per kind and an
// analysis trigger into a unit that remote clients drive by ID.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/turtacn/dtiscope/internal/application/analysis"
	"github.com/turtacn/dtiscope/internal/application/resolver"
	"github.com/turtacn/dtiscope/internal/domain/event"
	"github.com/turtacn/dtiscope/internal/domain/selection"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

const eventBuffer = 64

// Deps are the collaborators shared by every session.
type Deps struct {
	DrugSource    resolver.Source
	ProteinSource resolver.Source
	Scorer        analysis.Scorer
	Resolver      resolver.Config
	Publisher     event.Publisher
	Logger        logging.Logger
	Metrics       *prometheus.AppMetrics
}

func (d *Deps) applyDefaults() {
	if d.Publisher == nil {
		d.Publisher = event.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logging.NewNopLogger()
	}
	if d.Metrics == nil {
		d.Metrics = prometheus.NewNoopAppMetrics()
	}
}

// Session is one user's lookup-and-analyze workspace.
type Session struct {
	ID        string
	CreatedAt time.Time

	store     *selection.Store
	resolvers map[selection.Kind]*resolver.Resolver
	trigger   *analysis.Trigger
	publisher event.Publisher
	logger    logging.Logger

	lastActive atomic.Int64

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int

	evMu     sync.Mutex
	events   chan event.SelectionCommitted
	evClosed bool
	evDone   chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New builds a session.  Most callers go through Manager.Create.
func New(id string, deps Deps) *Session {
	deps.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		store:     selection.NewStore(),
		publisher: deps.Publisher,
		logger:    deps.Logger.With(logging.String(logging.FieldSessionID, id)),
		subs:      make(map[int]chan struct{}),
		events:    make(chan event.SelectionCommitted, eventBuffer),
		evDone:    make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.lastActive.Store(now.UnixNano())

	rl := s.logger
	s.resolvers = map[selection.Kind]*resolver.Resolver{
		selection.KindDrug:    resolver.New(resolver.DrugProfile, deps.Resolver, deps.DrugSource, s.store, rl, deps.Metrics),
		selection.KindProtein: resolver.New(resolver.ProteinProfile, deps.Resolver, deps.ProteinSource, s.store, rl, deps.Metrics),
	}
	s.trigger = analysis.NewTrigger(s.store, deps.Scorer,
		analysis.WithLogger(deps.Logger),
		analysis.WithMetrics(deps.Metrics),
		analysis.WithPublisher(deps.Publisher),
		analysis.WithSessionID(id))

	for _, r := range s.resolvers {
		r.OnChange(func(resolver.State) { s.broadcast() })
	}
	s.trigger.OnChange(s.broadcast)
	s.store.Subscribe(s.onCommit)

	go s.publishLoop()
	return s
}

// Resolver returns the resolver for kind.
func (s *Session) Resolver(kind selection.Kind) (*resolver.Resolver, error) {
	r, ok := s.resolvers[kind]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeLookupKindUnsupported, "").WithDetail(string(kind))
	}
	return r, nil
}

// Trigger returns the analysis trigger.
func (s *Session) Trigger() *analysis.Trigger { return s.trigger }

// Store returns the selection store.
func (s *Session) Store() *selection.Store { return s.store }

// Context is cancelled when the session closes.  Background work started on
// behalf of the session should derive from it.
func (s *Session) Context() context.Context { return s.ctx }

// Touch marks the session as active.
func (s *Session) Touch() { s.lastActive.Store(time.Now().UnixNano()) }

// LastActive returns the time of the last Touch.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

// Analyze starts a run in the background.  Errors are those of
// analysis.Trigger.Start.
func (s *Session) Analyze() error {
	_, err := s.trigger.Start(s.ctx)
	return err
}

// View builds the client-facing snapshot.
func (s *Session) View() View {
	drug, protein, version := s.store.Pair()
	st := s.trigger.Status()
	return View{
		ID:       s.ID,
		Version:  version,
		Drug:     EntityView{Selection: drug, Input: s.resolvers[selection.KindDrug].Snapshot()},
		Protein:  EntityView{Selection: protein, Input: s.resolvers[selection.KindProtein].Snapshot()},
		Analysis: st,
		Result:   PresentResult(st.Result, st.HasResult),
	}
}

// Subscribe returns a channel signalled (coalesced, never blocking the
// sender) whenever the view may have changed, and a function to unsubscribe.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Session) broadcast() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Session) onCommit(sel selection.Selection, version uint64) {
	ev := event.SelectionCommitted{
		SessionID:     s.ID,
		Kind:          sel.Kind.String(),
		Name:          sel.Name,
		ID:            sel.ID,
		PayloadLength: len(sel.Payload),
		Version:       version,
		CommittedAt:   time.Now().UTC(),
	}
	s.evMu.Lock()
	if !s.evClosed {
		select {
		case s.events <- ev:
		default:
			s.logger.Warn("event buffer full, dropping selection event", logging.Uint64("version", version))
		}
	}
	s.evMu.Unlock()

	s.logger.Debug("selection committed",
		logging.String(logging.FieldKind, sel.Kind.String()),
		logging.String("name", sel.Name),
		logging.Bool("resolved", sel.Resolved()),
		logging.Uint64("version", version))
	s.broadcast()
}

func (s *Session) publishLoop() {
	defer close(s.evDone)
	for ev := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.publisher.Publish(ctx, event.TypeSelectionCommitted, s.ID, ev); err != nil {
			s.logger.WithError(err).Warn("event publish failed", logging.String("event_type", event.TypeSelectionCommitted))
		}
		cancel()
	}
}

// Close stops both resolvers, cancels a pending analysis and flushes queued
// events.  Subscribers' channels are left open; they stop receiving.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for _, r := range s.resolvers {
			r.Close()
		}
		s.cancel()

		s.evMu.Lock()
		s.evClosed = true
		close(s.events)
		s.evMu.Unlock()
		<-s.evDone

		s.subMu.Lock()
		s.subs = make(map[int]chan struct{})
		s.subMu.Unlock()
		s.logger.Debug("session closed")
	})
}

//Personal.AI order the ending
