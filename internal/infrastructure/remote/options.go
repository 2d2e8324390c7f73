package remote

import (
	"net/http"
	"time"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithTimeout sets the per-attempt HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithRetryMax sets the number of retries after the first attempt.
func WithRetryMax(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.retryMax = n
		}
	}
}

// WithRetryWait sets the minimum and maximum backoff.  max is only applied
// when it is at least min.
func WithRetryWait(min, max time.Duration) Option {
	return func(f *Fetcher) {
		if min > 0 {
			f.retryWaitMin = min
			if max >= min {
				f.retryWaitMax = max
			}
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

//Personal.AI order the ending
