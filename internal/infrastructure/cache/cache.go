// Package cache stores resolved lookups (compound name → SMILES and
// accession → sequence) so repeated selections skip the network.
// Only successful results are cached; failures always go back to the source.
package cache

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = apperrors.New(apperrors.CodeNotFound, "cache miss")

// Cache is a string key/value store with expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	// Tier names the backend for metrics ("memory", "redis", "none").
	Tier() string
}

// Key builds a cache key from parts.  Each part is NFKC-normalised, trimmed
// and lower-cased so that "Aspirin", " aspirin" and the full-width form share
// one entry.
func Key(parts ...string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.ToLower(strings.TrimSpace(norm.NFKC.String(p)))
	}
	return strings.Join(out, ":")
}

// LoadFunc produces the value for a missing key.
type LoadFunc func(ctx context.Context) (string, error)

// DefaultLoadTimeout bounds a shared load once it no longer follows the
// caller that started it.
const DefaultLoadTimeout = 30 * time.Second

// Loader reads through a Cache, coalescing concurrent loads of the same key.
type Loader struct {
	cache       Cache
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	logger      logging.Logger
	metrics     *prometheus.AppMetrics
}

// NewLoader wraps c.  Entries are written with ttl.
func NewLoader(c Cache, ttl time.Duration, logger logging.Logger, metrics *prometheus.AppMetrics) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	return &Loader{cache: c, ttl: ttl, loadTimeout: DefaultLoadTimeout, logger: logger.Named("cache"), metrics: metrics}
}

// GetOrLoad returns the cached value for key or calls load.  A cache backend
// error is logged and treated as a miss.  Empty values and load errors are
// not stored.
//
// Concurrent callers for one key share a single load.  That load keeps the
// first caller's values but not its cancellation, so a caller that gives up
// returns ctx.Err() without failing the others.
func (l *Loader) GetOrLoad(ctx context.Context, key string, load LoadFunc) (string, error) {
	v, err := l.cache.Get(ctx, key)
	switch {
	case err == nil:
		l.metrics.RecordCache(l.cache.Tier(), true)
		return v, nil
	case err != ErrCacheMiss:
		l.logger.WithError(err).Warn("cache read failed", logging.String("key", key))
	}
	l.metrics.RecordCache(l.cache.Tier(), false)

	ch := l.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.loadTimeout)
		defer cancel()
		val, loadErr := load(loadCtx)
		if loadErr != nil {
			return "", loadErr
		}
		if val != "" {
			if setErr := l.cache.Set(loadCtx, key, val, l.ttl); setErr != nil {
				l.logger.WithError(setErr).Warn("cache write failed", logging.String("key", key))
			}
		}
		return val, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Cache returns the wrapped backend.
func (l *Loader) Cache() Cache { return l.cache }

//Personal.AI order the ending
