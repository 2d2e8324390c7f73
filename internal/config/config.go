// Package config defines the configuration structures for dtiscope.  No I/O
// lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// RateLimitRPS is the sustained per-client request rate; 0 disables
	// rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SourceConfig describes one remote lookup service (PubChem or UniProt).
type SourceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RetryMax  int           `mapstructure:"retry_max"`
	RetryWait time.Duration `mapstructure:"retry_wait"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ResolverConfig holds the search-as-you-type tunables shared by both
// resolvers.
type ResolverConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	MaxSuggestions int           `mapstructure:"max_suggestions"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CacheConfig selects and sizes the lookup cache.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend string        `mapstructure:"backend"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

// RedisConfig holds Redis connection parameters for the shared cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AnalysisConfig selects the scoring collaborator.
type AnalysisConfig struct {
	// Scorer is "stub" or "http".
	Scorer    string        `mapstructure:"scorer"`
	StubDelay time.Duration `mapstructure:"stub_delay"`
	Endpoint  string        `mapstructure:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// KafkaConfig enables event publishing.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// SessionConfig bounds the in-memory session registry.
type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	MaxSessions   int           `mapstructure:"max_sessions"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Log      logging.LogConfig `mapstructure:"log"`
	PubChem  SourceConfig      `mapstructure:"pubchem"`
	UniProt  SourceConfig      `mapstructure:"uniprot"`
	Resolver ResolverConfig    `mapstructure:"resolver"`
	Cache    CacheConfig       `mapstructure:"cache"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Analysis AnalysisConfig    `mapstructure:"analysis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Session  SessionConfig     `mapstructure:"session"`
}

// Validate checks cross-field consistency after defaults have been applied.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if _, err := logging.ParseLevel(c.Log.Level.String()); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	for name, src := range map[string]SourceConfig{"pubchem": c.PubChem, "uniprot": c.UniProt} {
		if _, err := url.ParseRequestURI(src.BaseURL); err != nil {
			return fmt.Errorf("config: %s.base_url %q is not a valid URL", name, src.BaseURL)
		}
		if src.RetryMax < 0 {
			return fmt.Errorf("config: %s.retry_max must not be negative", name)
		}
	}
	if c.Resolver.Debounce < 0 {
		return fmt.Errorf("config: resolver.debounce must not be negative")
	}
	if c.Resolver.MaxSuggestions <= 0 {
		return fmt.Errorf("config: resolver.max_suggestions must be positive")
	}
	if c.Resolver.RequestTimeout <= 0 {
		return fmt.Errorf("config: resolver.request_timeout must be positive")
	}
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("config: cache.backend %q must be one of memory, redis, none", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when cache.backend is redis")
	}
	switch c.Analysis.Scorer {
	case ScorerStub:
	case ScorerHTTP:
		if _, err := url.ParseRequestURI(c.Analysis.Endpoint); err != nil {
			return fmt.Errorf("config: analysis.endpoint is required for the http scorer")
		}
	default:
		return fmt.Errorf("config: analysis.scorer %q must be stub or http", c.Analysis.Scorer)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers is required when kafka is enabled")
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("config: session.max_sessions must be positive")
	}
	return nil
}

//Personal.AI order the ending
