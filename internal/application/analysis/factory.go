package analysis

import (
	"github.com/turtacn/dtiscope/internal/config"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/dtiscope/internal/infrastructure/remote"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// NewScorer builds the scorer named by cfg.Scorer.  The HTTP scorer does not
// retry; a prediction is not assumed to be idempotent.
func NewScorer(cfg config.AnalysisConfig, logger logging.Logger, metrics *prometheus.AppMetrics) (Scorer, error) {
	switch cfg.Scorer {
	case "", config.ScorerStub:
		return NewStubScorer(cfg.StubDelay, nil), nil
	case config.ScorerHTTP:
		if cfg.Endpoint == "" {
			return nil, apperrors.New(apperrors.ErrCodeScorerUnsupported, "http scorer requires an endpoint")
		}
		opts := []remote.Option{remote.WithRetryMax(0), remote.WithLogger(logger), remote.WithMetrics(metrics)}
		if cfg.Timeout > 0 {
			opts = append(opts, remote.WithTimeout(cfg.Timeout))
		}
		return NewHTTPScorer(cfg.Endpoint, remote.NewFetcher("scorer", opts...)), nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeScorerUnsupported, "").WithDetail(cfg.Scorer)
	}
}

//Personal.AI order the ending
