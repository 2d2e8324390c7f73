// Package remote talks to the public lookup services: PubChem for compound
// names and SMILES, UniProt for protein accessions and sequences.  Every call
// goes through Fetcher, which adds retries, request IDs, logging and metrics.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

const (
	defaultRetryMax     = 2
	defaultRetryWaitMin = 250 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	maxBodyBytes        = 4 << 20
)

// Fetcher performs HTTP requests against one named source.
type Fetcher struct {
	source       string
	httpClient   *http.Client
	userAgent    string
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	logger       logging.Logger
	metrics      *prometheus.AppMetrics
}

// NewFetcher returns a Fetcher labelled source ("pubchem", "uniprot", ...).
func NewFetcher(source string, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:       source,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		userAgent:    "dtiscope/1.0",
		retryMax:     defaultRetryMax,
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
		logger:       logging.NewNopLogger(),
		metrics:      prometheus.NewNoopAppMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named(source)
	return f
}

// Source returns the label given at construction.
func (f *Fetcher) Source() string { return f.source }

// Get fetches rawURL and returns the body of a 2xx response.  op labels the
// call in logs and metrics.
func (f *Fetcher) Get(ctx context.Context, op, rawURL, accept string) ([]byte, error) {
	return f.Do(ctx, op, http.MethodGet, rawURL, accept, nil)
}

// Do performs a request with retry on transport errors, 429 and 5xx.
// Failures are returned as *AppError:
//
//	404            → SRC_003
//	429            → SRC_002
//	5xx, transport → SRC_001
//	ctx deadline   → COMMON_009
func (f *Fetcher) Do(ctx context.Context, op, method, rawURL, accept string, body []byte) ([]byte, error) {
	start := time.Now()
	out, err := f.do(ctx, method, rawURL, accept, body)

	outcome := prometheus.OutcomeSuccess
	if err != nil {
		outcome = prometheus.OutcomeFailure
	}
	f.metrics.RecordLookup(f.source, op, outcome, time.Since(start))
	logging.LogRemoteCall(f.logger.WithContext(ctx), f.source, op, start, err)
	return out, err
}

func (f *Fetcher) do(ctx context.Context, method, rawURL, accept string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retryMax; attempt++ {
		if attempt > 0 {
			wait := f.backoff(attempt)
			if ra, ok := lastErr.(*retryAfterError); ok && ra.wait > 0 {
				wait = ra.wait
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, f.contextError(ctx, rawURL)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "failed to build request").WithDetail(rawURL)
		}
		req.Header.Set("User-Agent", f.userAgent)
		req.Header.Set("X-Request-ID", uuid.NewString())
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, f.contextError(ctx, rawURL)
			}
			lastErr = apperrors.Wrap(err, apperrors.ErrCodeDataSourceUnavailable, f.source+" request failed").WithDetail(rawURL)
			continue
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if readErr != nil {
			lastErr = apperrors.Wrap(readErr, apperrors.ErrCodeDataSourceUnavailable, "failed to read "+f.source+" response")
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return data, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, apperrors.New(apperrors.ErrCodeDataSourceNotFound, f.source+" returned no record").WithDetail(rawURL)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &retryAfterError{
				AppError: apperrors.New(apperrors.ErrCodeDataSourceRateLimited, f.source+" rate limited").WithDetail(rawURL),
				wait:     parseRetryAfter(resp.Header.Get("Retry-After"), f.retryWaitMax),
			}
		case resp.StatusCode >= 500:
			lastErr = apperrors.New(apperrors.ErrCodeDataSourceUnavailable,
				fmt.Sprintf("%s returned HTTP %d", f.source, resp.StatusCode)).WithDetail(snippet(data))
		default:
			return nil, apperrors.New(apperrors.ErrCodeExternalService,
				fmt.Sprintf("%s returned HTTP %d", f.source, resp.StatusCode)).WithDetail(snippet(data))
		}
	}
	if ra, ok := lastErr.(*retryAfterError); ok {
		return nil, ra.AppError
	}
	return nil, lastErr
}

func (f *Fetcher) contextError(ctx context.Context, rawURL string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return apperrors.Wrap(ctx.Err(), apperrors.CodeTimeout, f.source+" request timed out").WithDetail(rawURL)
	}
	return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeDataSourceUnavailable, f.source+" request cancelled").WithDetail(rawURL)
}

// backoff returns exponential backoff with up to 25% jitter.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if d > f.retryWaitMax {
		d = f.retryWaitMax
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	return d
}

type retryAfterError struct {
	*apperrors.AppError
	wait time.Duration
}

func parseRetryAfter(v string, ceiling time.Duration) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > ceiling {
		return ceiling
	}
	return d
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

//Personal.AI order the ending
