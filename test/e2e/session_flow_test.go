// End-to-end tests: the assembled application served over HTTP, driven
// through the Go SDK against a fake PubChem and UniProt.
package e2e_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/dtiscope/internal/app"
	"github.com/turtacn/dtiscope/internal/config"
	"github.com/turtacn/dtiscope/internal/testutil"
	"github.com/turtacn/dtiscope/pkg/client"
)

type testEnv struct {
	upstream *testutil.Upstream
	sdk      *client.Client
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	upstream := testutil.NewUpstream(t)

	cfg := config.NewDefault()
	cfg.PubChem.BaseURL = upstream.URL
	cfg.UniProt.BaseURL = upstream.URL
	cfg.Resolver.Debounce = 10 * time.Millisecond
	cfg.Analysis.StubDelay = 30 * time.Millisecond
	cfg.Server.RateLimitRPS = 0

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	handler, stop := a.Handler("e2e")
	t.Cleanup(stop)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sdk, err := client.NewClient(srv.URL, client.WithPollInterval(5*time.Millisecond), client.WithRetryMax(0))
	require.NoError(t, err)
	return &testEnv{upstream: upstream, sdk: sdk}
}

// pick types text into kind's search field, waits for suggestions and
// commits the first one.
func (e *testEnv) pick(t *testing.T, id, kind, text string) client.Selection {
	t.Helper()
	ctx := context.Background()
	sessions := e.sdk.Sessions()

	_, err := sessions.Query(ctx, id, kind, text)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		view, err := sessions.Get(ctx, id)
		return err == nil && len(view.Entity(kind).Input.Suggestions) > 0
	}, 2*time.Second, 10*time.Millisecond)

	view, err := sessions.Select(ctx, id, kind, 0)
	require.NoError(t, err)
	return view.Entity(kind).Selection
}

func TestSessionFlow_SearchSelectAnalyze(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sessions := e.sdk.Sessions()

	s, err := sessions.Create(ctx)
	require.NoError(t, err)
	assert.False(t, s.Analysis.CanRun)

	stream, err := sessions.Watch(ctx, s.ID)
	require.NoError(t, err)
	defer stream.Close()

	_, err = sessions.Analyze(ctx, s.ID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotReady())

	drug := e.pick(t, s.ID, client.KindDrug, "aspi")
	assert.Equal(t, testutil.Aspirin.Name, drug.Name)
	assert.Equal(t, testutil.Aspirin.SMILES, drug.Payload)

	protein := e.pick(t, s.ID, client.KindProtein, "hemoglobin")
	assert.Equal(t, testutil.HemoglobinA.Accession, protein.ID)
	assert.Equal(t, testutil.HemoglobinA.Sequence, protein.Payload)

	view, err := sessions.Analyze(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, view.Analysis.Running)

	done, err := sessions.WaitForResult(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, done.Result)
	assert.Equal(t, "Analysis Result", done.Result.Title)
	assert.Regexp(t, `^Predicted IC50: \d+\.\d{2} nM$`, done.Result.Text)

	// The stream converges on the same final state.
	for {
		select {
		case f, ok := <-stream.Frames():
			require.True(t, ok, "stream ended early: %v", stream.Err())
			if f.Type == "state" && f.Session != nil && f.Session.Result != nil {
				assert.Equal(t, done.Result.Text, f.Session.Result.Text)
				return
			}
		case <-ctx.Done():
			t.Fatal("no result frame received")
		}
	}
}

func TestSessionFlow_ManualEntryAndCache(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	sessions := e.sdk.Sessions()

	first, err := sessions.Create(ctx)
	require.NoError(t, err)
	e.pick(t, first.ID, client.KindDrug, "ibu")

	second, err := sessions.Create(ctx)
	require.NoError(t, err)
	drug := e.pick(t, second.ID, client.KindDrug, "ibu")
	assert.Equal(t, testutil.Ibuprofen.SMILES, drug.Payload)
	assert.Equal(t, 1, e.upstream.Hits("smiles"), "second resolution should come from the cache")

	_, err = sessions.ToggleMode(ctx, second.ID, client.KindProtein)
	require.NoError(t, err)
	_, err = sessions.SetManual(ctx, second.ID, client.KindProtein, "MKTAYIAKQR")
	require.NoError(t, err)
	view, err := sessions.SubmitManual(ctx, second.ID, client.KindProtein)
	require.NoError(t, err)
	assert.Equal(t, "Custom Protein", view.Protein.Selection.Name)
	assert.Equal(t, "MKTAYIAKQR", view.Protein.Selection.Payload)
	assert.True(t, view.Analysis.CanRun)

	require.NoError(t, sessions.Delete(ctx, second.ID))
	_, err = sessions.Get(ctx, second.ID)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "SES_001", apiErr.Code)
}

//Personal.AI order the ending
