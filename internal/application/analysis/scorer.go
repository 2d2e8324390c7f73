package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/turtacn/dtiscope/internal/infrastructure/remote"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// Scorer computes a display string for a drug/protein pair.
type Scorer interface {
	Score(ctx context.Context, drugPayload, proteinPayload string) (string, error)
	Name() string
}

// ─────────────────────────────────────────────────────────────────────────────
// Stub scorer
// ─────────────────────────────────────────────────────────────────────────────

// StubScorer waits for a fixed delay and returns a random predicted IC50.
type StubScorer struct {
	delay time.Duration
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewStubScorer returns a StubScorer.  A nil rng uses a time-seeded source.
func NewStubScorer(delay time.Duration, rng *rand.Rand) *StubScorer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &StubScorer{delay: delay, rng: rng}
}

func (s *StubScorer) Name() string { return "stub" }

// Score ignores its inputs.
func (s *StubScorer) Score(ctx context.Context, _, _ string) (string, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	v := s.rng.Float64() * 100
	s.mu.Unlock()
	return formatIC50("Predicted", v), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP scorer
// ─────────────────────────────────────────────────────────────────────────────

// HTTPScorer posts the pair to a prediction endpoint.  The response carries
// either a measured "affinity" or a "predicted_affinity".
type HTTPScorer struct {
	endpoint string
	fetcher  *remote.Fetcher
}

// NewHTTPScorer returns a scorer posting to endpoint.
func NewHTTPScorer(endpoint string, fetcher *remote.Fetcher) *HTTPScorer {
	return &HTTPScorer{endpoint: endpoint, fetcher: fetcher}
}

func (s *HTTPScorer) Name() string { return "http" }

type predictRequest struct {
	Drug    string `json:"drug"`
	Protein string `json:"protein"`
}

// Score returns "Measured IC50: x nM" or "Predicted IC50: x nM".  A non-2xx
// response becomes an error whose detail is the body's "detail" field.
func (s *HTTPScorer) Score(ctx context.Context, drugPayload, proteinPayload string) (string, error) {
	body, err := json.Marshal(predictRequest{Drug: drugPayload, Protein: proteinPayload})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode predict request")
	}
	data, err := s.fetcher.Do(ctx, "predict", http.MethodPost, s.endpoint, "application/json", body)
	if err != nil {
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) && gjson.Valid(appErr.Detail) {
			if d := gjson.Get(appErr.Detail, "detail"); d.Exists() {
				return "", apperrors.New(apperrors.ErrCodeAnalysisFailed, "prediction failed").
					WithDetail(d.String()).WithCause(err)
			}
		}
		return "", err
	}

	if !gjson.ValidBytes(data) {
		return "", apperrors.New(apperrors.ErrCodeDataSourceParseError, "predict returned invalid JSON")
	}
	if v := gjson.GetBytes(data, "affinity"); v.Exists() && v.Type == gjson.Number {
		return formatIC50("Measured", v.Float()), nil
	}
	if v := gjson.GetBytes(data, "predicted_affinity"); v.Exists() && v.Type == gjson.Number {
		return formatIC50("Predicted", v.Float()), nil
	}
	return "", apperrors.New(apperrors.ErrCodeDataSourceParseError, "predict response has no affinity").
		WithDetail(string(data))
}

func formatIC50(prefix string, v float64) string {
	return fmt.Sprintf("%s IC50: %.2f nM", prefix, v)
}

//Personal.AI order the ending
