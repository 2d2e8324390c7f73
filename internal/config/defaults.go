package config

import (
	"time"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
)

// Enumerated values.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"

	ScorerStub = "stub"
	ScorerHTTP = "http"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultServerMaxBodySize     = 1 << 20
	DefaultRateLimitBurst        = 40

	DefaultLogLevel  = logging.LevelInfo
	DefaultLogFormat = "json"

	DefaultPubChemBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest"
	DefaultUniProtBaseURL = "https://rest.uniprot.org"
	DefaultSourceRetryMax = 2
	DefaultSourceRetry    = 250 * time.Millisecond
	DefaultUserAgent      = "dtiscope/1.0"

	DefaultDebounce       = 300 * time.Millisecond
	DefaultMaxSuggestions = 6
	DefaultRequestTimeout = 10 * time.Second

	DefaultCacheBackend = CacheBackendMemory
	DefaultCacheSize    = 1024
	DefaultCacheTTL     = time.Hour
	DefaultCachePrefix  = "dtiscope:"

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPoolSize = 10
	DefaultRedisTimeout  = 3 * time.Second

	DefaultScorer        = ScorerStub
	DefaultStubDelay     = 1500 * time.Millisecond
	DefaultScorerTimeout = 30 * time.Second

	DefaultKafkaTopic        = "dtiscope.events"
	DefaultKafkaBatchTimeout = 50 * time.Millisecond

	DefaultMetricsNamespace = "dtiscope"
	DefaultMetricsPath      = "/metrics"

	DefaultSessionIdleTTL   = 30 * time.Minute
	DefaultMaxSessions      = 1000
	DefaultSweepInterval    = time.Minute
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly configured values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = DefaultRateLimitBurst
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Sources ───────────────────────────────────────────────────────────────
	applySourceDefaults(&cfg.PubChem, DefaultPubChemBaseURL)
	applySourceDefaults(&cfg.UniProt, DefaultUniProtBaseURL)

	// ── Resolver ──────────────────────────────────────────────────────────────
	if cfg.Resolver.Debounce == 0 {
		cfg.Resolver.Debounce = DefaultDebounce
	}
	if cfg.Resolver.MaxSuggestions == 0 {
		cfg.Resolver.MaxSuggestions = DefaultMaxSuggestions
	}
	if cfg.Resolver.RequestTimeout == 0 {
		cfg.Resolver.RequestTimeout = DefaultRequestTimeout
	}

	// ── Cache / Redis ─────────────────────────────────────────────────────────
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = DefaultCacheSize
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisTimeout
	}

	// ── Analysis ──────────────────────────────────────────────────────────────
	if cfg.Analysis.Scorer == "" {
		cfg.Analysis.Scorer = DefaultScorer
	}
	if cfg.Analysis.StubDelay == 0 {
		cfg.Analysis.StubDelay = DefaultStubDelay
	}
	if cfg.Analysis.Timeout == 0 {
		cfg.Analysis.Timeout = DefaultScorerTimeout
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Session ───────────────────────────────────────────────────────────────
	if cfg.Session.IdleTTL == 0 {
		cfg.Session.IdleTTL = DefaultSessionIdleTTL
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = DefaultMaxSessions
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = DefaultSweepInterval
	}
}

func applySourceDefaults(src *SourceConfig, baseURL string) {
	if src.BaseURL == "" {
		src.BaseURL = baseURL
	}
	if src.Timeout == 0 {
		src.Timeout = DefaultRequestTimeout
	}
	if src.RetryMax == 0 {
		src.RetryMax = DefaultSourceRetryMax
	}
	if src.RetryWait == 0 {
		src.RetryWait = DefaultSourceRetry
	}
	if src.UserAgent == "" {
		src.UserAgent = DefaultUserAgent
	}
}

// NewDefault returns a Config populated entirely from defaults.
func NewDefault() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

//Personal.AI order the ending
