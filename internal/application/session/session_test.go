package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/dtiscope/internal/application/analysis"
	"github.com/turtacn/dtiscope/internal/application/resolver"
	"github.com/turtacn/dtiscope/internal/domain/event"
	"github.com/turtacn/dtiscope/internal/domain/selection"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

type staticSource struct {
	suggestions []selection.Suggestion
	payload     string
}

func (s staticSource) Suggest(context.Context, string, int) ([]selection.Suggestion, error) {
	return s.suggestions, nil
}

func (s staticSource) Detail(context.Context, selection.Suggestion) (string, error) {
	return s.payload, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []event.SelectionCommitted
	types  []string
}

func (c *capturePublisher) Publish(_ context.Context, eventType, _ string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = append(c.types, eventType)
	if ev, ok := payload.(event.SelectionCommitted); ok {
		c.events = append(c.events, ev)
	}
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) committed() []event.SelectionCommitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.SelectionCommitted(nil), c.events...)
}

func testDeps(pub event.Publisher) Deps {
	return Deps{
		DrugSource:    staticSource{suggestions: []selection.Suggestion{{Label: "Aspirin"}}, payload: "CC(=O)OC1=CC=CC=C1C(=O)O"},
		ProteinSource: staticSource{suggestions: []selection.Suggestion{{Label: "Hemoglobin subunit alpha", Accession: "P69905"}}, payload: "MVLSPADKTNVKAAWGKVGA"},
		Scorer:        analysis.NewStubScorer(0, nil),
		Resolver:      resolver.Config{Debounce: 10 * time.Millisecond, MaxSuggestions: 6, RequestTimeout: time.Second},
		Publisher:     pub,
	}
}

func TestSession_EndToEnd(t *testing.T) {
	pub := &capturePublisher{}
	s := New("s-1", testDeps(pub))
	defer s.Close()

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	drug, err := s.Resolver(selection.KindDrug)
	require.NoError(t, err)
	_, committed, err := drug.Select(context.Background(), selection.Suggestion{Label: "Aspirin"})
	require.NoError(t, err)
	require.True(t, committed)

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("no update after commit")
	}

	assert.Equal(t, analysis.ErrNotReady, s.Analyze())

	protein, err := s.Resolver(selection.KindProtein)
	require.NoError(t, err)
	_, _, err = protein.Select(context.Background(), selection.Suggestion{Label: "Hemoglobin subunit alpha", Accession: "P69905"})
	require.NoError(t, err)

	require.NoError(t, s.Analyze())
	require.Eventually(t, func() bool { return s.View().Result != nil }, time.Second, 5*time.Millisecond)

	v := s.View()
	assert.Equal(t, "s-1", v.ID)
	assert.Equal(t, "Aspirin", v.Drug.Selection.Name)
	assert.Equal(t, "P69905", v.Protein.Selection.ID)
	assert.Equal(t, ResultTitle, v.Result.Title)
	assert.Regexp(t, `^Predicted IC50: \d+\.\d{2} nM$`, v.Result.Text)
	assert.True(t, v.Analysis.CanRun)

	require.Eventually(t, func() bool { return len(pub.committed()) == 2 }, time.Second, 5*time.Millisecond)
	evs := pub.committed()
	assert.Equal(t, "drug", evs[0].Kind)
	assert.Equal(t, 24, evs[0].PayloadLength)
	assert.EqualValues(t, 2, evs[1].Version)
}

func TestSession_UnknownKind(t *testing.T) {
	s := New("s", testDeps(nil))
	defer s.Close()
	_, err := s.Resolver(selection.Kind("ligand"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeLookupKindUnsupported))
}

func TestSession_ToggleClearsResult(t *testing.T) {
	s := New("s", testDeps(nil))
	defer s.Close()
	ctx := context.Background()

	drug, _ := s.Resolver(selection.KindDrug)
	protein, _ := s.Resolver(selection.KindProtein)
	_, _, _ = drug.Select(ctx, selection.Suggestion{Label: "Aspirin"})
	_, _, _ = protein.Select(ctx, selection.Suggestion{Label: "Hb", Accession: "P69905"})
	_, err := s.Trigger().Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, s.View().Result)

	protein.ToggleMode()
	v := s.View()
	assert.Nil(t, v.Result)
	assert.False(t, v.Analysis.CanRun)
	assert.Equal(t, selection.ModeManual, v.Protein.Input.Mode)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := New("s", testDeps(&capturePublisher{}))
	s.Close()
	s.Close()
	assert.Error(t, s.Context().Err())
	// Commits after close must not panic on the closed event queue.
	s.Store().Commit(selection.Empty(selection.KindDrug))
}

func TestPresentResult(t *testing.T) {
	assert.Nil(t, PresentResult("x", false))
	assert.Equal(t, &ResultView{Title: "Analysis Result", Text: "Predicted IC50: 1.00 nM"}, PresentResult("Predicted IC50: 1.00 nM", true))
}

// ─────────────────────────────────────────────────────────────────────────────
// Manager
// ─────────────────────────────────────────────────────────────────────────────

func TestManager_CreateGetDelete(t *testing.T) {
	m := NewManager(ManagerConfig{MaxSessions: 2}, testDeps(nil))
	defer m.Close()

	s, err := m.Create()
	require.NoError(t, err)
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Create()
	require.NoError(t, err)
	_, err = m.Create()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSessionLimitExceeded))

	require.NoError(t, m.Delete(s.ID))
	_, err = m.Get(s.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSessionNotFound))
	assert.True(t, apperrors.IsCode(m.Delete(s.ID), apperrors.ErrCodeSessionNotFound))
	assert.Equal(t, 1, m.Len())
}

func TestManager_SweepExpiresIdle(t *testing.T) {
	m := NewManager(ManagerConfig{IdleTTL: time.Minute}, testDeps(nil))
	defer m.Close()

	idle, err := m.Create()
	require.NoError(t, err)
	fresh, err := m.Create()
	require.NoError(t, err)

	idle.lastActive.Store(time.Now().Add(-2 * time.Minute).UnixNano())
	assert.Equal(t, 1, m.Sweep(time.Now()))
	_, err = m.Get(idle.ID)
	assert.Error(t, err)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
	assert.Error(t, idle.Context().Err())
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m := NewManager(ManagerConfig{IdleTTL: time.Millisecond, SweepInterval: 5 * time.Millisecond}, testDeps(nil))
	defer m.Close()
	_, err := m.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestManager_CloseRejectsCreate(t *testing.T) {
	m := NewManager(ManagerConfig{}, testDeps(nil))
	_, err := m.Create()
	require.NoError(t, err)
	m.Close()
	assert.Equal(t, 0, m.Len())
	_, err = m.Create()
	assert.Error(t, err)
}

//Personal.AI order the ending
