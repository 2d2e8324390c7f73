package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/dtiscope/internal/domain/selection"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fake source
// ─────────────────────────────────────────────────────────────────────────────

type suggestCall struct {
	fragment string
	at       time.Time
}

type fakeSource struct {
	mu       sync.Mutex
	calls    []suggestCall
	results  map[string][]selection.Suggestion
	gates    map[string]chan struct{} // blocks Suggest/Detail for the key until closed
	details  map[string]string
	errs     map[string]error
	detailed []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results: map[string][]selection.Suggestion{},
		gates:   map[string]chan struct{}{},
		details: map[string]string{},
		errs:    map[string]error{},
	}
}

func (f *fakeSource) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeSource) wait(ctx context.Context, key string) error {
	f.mu.Lock()
	ch := f.gates[key]
	f.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) Suggest(ctx context.Context, fragment string, limit int) ([]selection.Suggestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, suggestCall{fragment: fragment, at: time.Now()})
	f.mu.Unlock()
	if err := f.wait(ctx, fragment); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[fragment], f.errs[fragment]
}

func (f *fakeSource) Detail(ctx context.Context, item selection.Suggestion) (string, error) {
	f.mu.Lock()
	f.detailed = append(f.detailed, item.Key())
	f.mu.Unlock()
	if err := f.wait(ctx, "detail:"+item.Key()); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details[item.Key()], f.errs["detail:"+item.Key()]
}

func (f *fakeSource) suggestCalls() []suggestCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]suggestCall(nil), f.calls...)
}

func (f *fakeSource) detailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.detailed)
}

const debounce = 40 * time.Millisecond

func newTestResolver(t *testing.T, profile Profile, src Source) (*Resolver, *selection.Store) {
	t.Helper()
	store := selection.NewStore()
	r := New(profile, Config{Debounce: debounce, MaxSuggestions: 6, RequestTimeout: 2 * time.Second}, src, store, nil, nil)
	t.Cleanup(r.Close)
	return r, store
}

func labels(items ...string) []selection.Suggestion {
	out := make([]selection.Suggestion, len(items))
	for i, l := range items {
		out[i] = selection.Suggestion{Label: l}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Debounce and suggestions
// ─────────────────────────────────────────────────────────────────────────────

func TestQueryChange_DebouncesToLastKeystroke(t *testing.T) {
	src := newFakeSource()
	src.results["aspi"] = labels("Aspirin")
	r, _ := newTestResolver(t, DrugProfile, src)

	start := time.Now()
	for _, q := range []string{"a", "as", "asp", "aspi"} {
		r.QueryChange(q)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(r.Snapshot().Suggestions) == 1 }, time.Second, 5*time.Millisecond)
	calls := src.suggestCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "aspi", calls[0].fragment)
	assert.GreaterOrEqual(t, calls[0].at.Sub(start), debounce)
	assert.True(t, r.Snapshot().Visible)
}

func TestQueryChange_BlankClearsWithoutFetching(t *testing.T) {
	src := newFakeSource()
	src.results["asp"] = labels("Aspirin")
	r, _ := newTestResolver(t, DrugProfile, src)

	r.QueryChange("asp")
	require.Eventually(t, func() bool { return len(r.Snapshot().Suggestions) == 1 }, time.Second, 5*time.Millisecond)

	r.QueryChange("   ")
	assert.Empty(t, r.Snapshot().Suggestions)
	time.Sleep(3 * debounce)
	assert.Len(t, src.suggestCalls(), 1)
}

func TestQueryChange_StaleResponseDiscarded(t *testing.T) {
	src := newFakeSource()
	src.results["ib"] = labels("Ibrutinib")
	src.results["ibu"] = labels("Ibuprofen")
	release := src.gate("ib")
	r, _ := newTestResolver(t, DrugProfile, src)

	r.QueryChange("ib")
	require.Eventually(t, func() bool { return len(src.suggestCalls()) == 1 }, time.Second, 5*time.Millisecond)

	r.QueryChange("ibu")
	require.Eventually(t, func() bool {
		s := r.Snapshot().Suggestions
		return len(s) == 1 && s[0].Label == "Ibuprofen"
	}, time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(3 * debounce)
	s := r.Snapshot().Suggestions
	require.Len(t, s, 1)
	assert.Equal(t, "Ibuprofen", s[0].Label)
}

func TestQueryChange_ResponseAfterBlankDiscarded(t *testing.T) {
	src := newFakeSource()
	src.results["asp"] = labels("Aspirin")
	release := src.gate("asp")
	r, _ := newTestResolver(t, DrugProfile, src)

	r.QueryChange("asp")
	require.Eventually(t, func() bool { return len(src.suggestCalls()) == 1 }, time.Second, 5*time.Millisecond)
	r.QueryChange("")
	close(release)
	time.Sleep(3 * debounce)
	assert.Empty(t, r.Snapshot().Suggestions)
}

func TestQueryChange_FailureYieldsEmptyList(t *testing.T) {
	src := newFakeSource()
	src.errs["zz"] = apperrors.New(apperrors.ErrCodeDataSourceUnavailable, "down")
	r, _ := newTestResolver(t, DrugProfile, src)

	r.QueryChange("zz")
	require.Eventually(t, func() bool { return len(src.suggestCalls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(debounce)
	assert.Empty(t, r.Snapshot().Suggestions)
}

func TestQueryChange_TruncatesToMax(t *testing.T) {
	src := newFakeSource()
	src.results["a"] = labels("1", "2", "3", "4", "5", "6", "7", "8")
	r, _ := newTestResolver(t, DrugProfile, src)

	r.QueryChange("a")
	require.Eventually(t, func() bool { return len(r.Snapshot().Suggestions) > 0 }, time.Second, 5*time.Millisecond)
	assert.Len(t, r.Snapshot().Suggestions, 6)
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

func TestSelect_DrugCommitsSMILES(t *testing.T) {
	src := newFakeSource()
	src.details["Aspirin"] = "CC(=O)OC1=CC=CC=C1C(=O)O"
	r, store := newTestResolver(t, DrugProfile, src)

	sel, committed, err := r.Select(context.Background(), selection.Suggestion{Label: "Aspirin"})
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, selection.Selection{Kind: selection.KindDrug, Name: "Aspirin", Payload: "CC(=O)OC1=CC=CC=C1C(=O)O"}, sel)
	assert.Equal(t, sel, store.Current(selection.KindDrug))

	st := r.Snapshot()
	assert.Equal(t, "Aspirin", st.Query)
	assert.False(t, st.Visible)
	assert.False(t, st.Resolving)
}

func TestSelect_ProteinCommitsAccessionAndSequence(t *testing.T) {
	src := newFakeSource()
	src.details["P69905"] = "MVLSPADKTNVKAAWGKVGA"
	r, store := newTestResolver(t, ProteinProfile, src)

	_, committed, err := r.Select(context.Background(), selection.Suggestion{Label: "Hemoglobin subunit alpha", Accession: "P69905"})
	require.NoError(t, err)
	assert.True(t, committed)
	got := store.Current(selection.KindProtein)
	assert.Equal(t, "P69905", got.ID)
	assert.Equal(t, "Hemoglobin subunit alpha", got.Name)
	assert.Equal(t, "MVLSPADKTNVKAAWGKVGA", got.Payload)
}

func TestSelect_FailureCommitsEmptyPayload(t *testing.T) {
	src := newFakeSource()
	src.errs["detail:Unobtainium"] = apperrors.New(apperrors.ErrCodeDataSourceNotFound, "")
	r, store := newTestResolver(t, DrugProfile, src)

	_, committed, err := r.Select(context.Background(), selection.Suggestion{Label: "Unobtainium"})
	require.NoError(t, err)
	assert.True(t, committed)
	got := store.Current(selection.KindDrug)
	assert.Equal(t, "Unobtainium", got.Name)
	assert.Empty(t, got.Payload)
}

func TestSelect_LaterSelectionWins(t *testing.T) {
	src := newFakeSource()
	src.details["Aspirin"] = "SMILES-A"
	src.details["Ibuprofen"] = "SMILES-I"
	release := src.gate("detail:Aspirin")
	r, store := newTestResolver(t, DrugProfile, src)

	type result struct{ committed bool }
	first := make(chan result, 1)
	go func() {
		_, c, _ := r.Select(context.Background(), selection.Suggestion{Label: "Aspirin"})
		first <- result{c}
	}()
	require.Eventually(t, func() bool { return src.detailCalls() == 1 }, time.Second, 5*time.Millisecond)

	_, committed, err := r.Select(context.Background(), selection.Suggestion{Label: "Ibuprofen"})
	require.NoError(t, err)
	assert.True(t, committed)

	close(release)
	res := <-first
	assert.False(t, res.committed)
	assert.Equal(t, "SMILES-I", store.Current(selection.KindDrug).Payload)
	assert.EqualValues(t, 1, store.Version())
}

func TestSelect_PendingSuggestionFetchDoesNotReopenList(t *testing.T) {
	src := newFakeSource()
	src.results["asp"] = labels("Aspirin")
	src.details["Aspirin"] = "X"
	r, _ := newTestResolver(t, DrugProfile, src)

	r.QueryChange("asp")
	_, _, err := r.Select(context.Background(), selection.Suggestion{Label: "Aspirin"})
	require.NoError(t, err)
	time.Sleep(3 * debounce)
	st := r.Snapshot()
	assert.False(t, st.Visible)
	assert.Empty(t, src.suggestCalls())
}

func TestSelectAt(t *testing.T) {
	src := newFakeSource()
	src.results["asp"] = labels("Aspirin", "Aspartame")
	src.details["Aspartame"] = "SWEET"
	r, store := newTestResolver(t, DrugProfile, src)

	_, _, err := r.SelectAt(context.Background(), 0)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSuggestionOutOfRange))

	r.QueryChange("asp")
	require.Eventually(t, func() bool { return len(r.Snapshot().Suggestions) == 2 }, time.Second, 5*time.Millisecond)

	_, committed, err := r.SelectAt(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, "SWEET", store.Current(selection.KindDrug).Payload)

	_, _, err = r.SelectAt(context.Background(), 5)
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Manual mode
// ─────────────────────────────────────────────────────────────────────────────

func TestToggleMode_ClearsAndCommitsEmpty(t *testing.T) {
	src := newFakeSource()
	src.details["Aspirin"] = "X"
	r, store := newTestResolver(t, DrugProfile, src)

	_, _, err := r.Select(context.Background(), selection.Suggestion{Label: "Aspirin"})
	require.NoError(t, err)
	r.SetManualText("leftover")

	mode := r.ToggleMode()
	assert.Equal(t, selection.ModeManual, mode)
	assert.Equal(t, selection.Empty(selection.KindDrug), store.Current(selection.KindDrug))
	st := r.Snapshot()
	assert.Empty(t, st.Query)
	assert.Empty(t, st.ManualText)
	assert.Empty(t, st.Suggestions)

	assert.Equal(t, selection.ModeSearch, r.ToggleMode())
}

func TestToggleMode_DiscardsInFlightDetail(t *testing.T) {
	src := newFakeSource()
	src.details["Aspirin"] = "X"
	release := src.gate("detail:Aspirin")
	r, store := newTestResolver(t, DrugProfile, src)

	done := make(chan bool, 1)
	go func() {
		_, c, _ := r.Select(context.Background(), selection.Suggestion{Label: "Aspirin"})
		done <- c
	}()
	require.Eventually(t, func() bool { return src.detailCalls() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, r.Snapshot().Resolving)

	r.ToggleMode()
	assert.False(t, r.Snapshot().Resolving)
	close(release)
	assert.False(t, <-done)
	assert.Empty(t, store.Current(selection.KindDrug).Payload)
}

func TestSubmitManual(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		text    string
		want    selection.Selection
		ok      bool
	}{
		{
			name:    "drug",
			profile: DrugProfile,
			text:    "  CCO  ",
			want:    selection.Selection{Kind: selection.KindDrug, Name: "Custom Compound", ID: "", Payload: "CCO"},
			ok:      true,
		},
		{
			name:    "protein",
			profile: ProteinProfile,
			text:    "MKTAYIAKQR\n",
			want:    selection.Selection{Kind: selection.KindProtein, Name: "Custom Protein", ID: "custom", Payload: "MKTAYIAKQR"},
			ok:      true,
		},
		{name: "blank", profile: DrugProfile, text: " \t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestResolver(t, tt.profile, newFakeSource())
			r.ToggleMode()
			before := store.Version()
			r.SetManualText(tt.text)
			got, ok := r.SubmitManual()
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, before, store.Version())
				return
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, store.Current(tt.profile.Kind))
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func TestClose_DropsLateResults(t *testing.T) {
	src := newFakeSource()
	src.results["asp"] = labels("Aspirin")
	store := selection.NewStore()
	r := New(DrugProfile, Config{Debounce: debounce}, src, store, nil, nil)

	r.QueryChange("asp")
	r.Close()
	time.Sleep(3 * debounce)
	assert.Empty(t, src.suggestCalls())

	_, _, err := r.Select(context.Background(), selection.Suggestion{Label: "Aspirin"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResolverClosed))
}

func TestOnChange_ReceivesSnapshots(t *testing.T) {
	r, _ := newTestResolver(t, DrugProfile, newFakeSource())
	var (
		mu     sync.Mutex
		states []State
	)
	r.OnChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	r.SetManualText("CCO")
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, "CCO", states[len(states)-1].ManualText)
}

func TestProfileFor(t *testing.T) {
	assert.Equal(t, DrugProfile, ProfileFor(selection.KindDrug))
	assert.Equal(t, ProteinProfile, ProfileFor(selection.KindProtein))
}

//Personal.AI order the ending
