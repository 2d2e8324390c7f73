// Package app assembles the runtime object graph from a Config: metrics,
// lookup cache, PubChem and UniProt clients, scorer, event publisher and the
// session manager.  Both binaries and the CLI build through it.
package app

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/dtiscope/internal/application/analysis"
	"github.com/turtacn/dtiscope/internal/application/lookup"
	"github.com/turtacn/dtiscope/internal/application/resolver"
	"github.com/turtacn/dtiscope/internal/application/session"
	"github.com/turtacn/dtiscope/internal/config"
	"github.com/turtacn/dtiscope/internal/domain/event"
	"github.com/turtacn/dtiscope/internal/infrastructure/cache"
	rediscache "github.com/turtacn/dtiscope/internal/infrastructure/cache/redis"
	"github.com/turtacn/dtiscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/dtiscope/internal/infrastructure/remote"
	httpapi "github.com/turtacn/dtiscope/internal/interfaces/http"
	"github.com/turtacn/dtiscope/internal/interfaces/http/handlers"
	"github.com/turtacn/dtiscope/internal/interfaces/http/middleware"
)

// App is the assembled runtime.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Metrics   *prometheus.AppMetrics
	Collector prometheus.MetricsCollector

	Cache    cache.Cache
	PubChem  *remote.PubChemClient
	UniProt  *remote.UniProtClient
	Drugs    *lookup.DrugSource
	Proteins *lookup.ProteinSource
	Scorer   analysis.Scorer

	Publisher event.Publisher
	Sessions  *session.Manager

	closers []func() error
}

// New builds every component.  On error the partially built graph is closed.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (a *App, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	built := &App{Config: cfg, Logger: logger}
	a = built
	defer func() {
		if err != nil {
			_ = built.Close()
			a = nil
		}
	}()

	a.Metrics = prometheus.NewNoopAppMetrics()
	if cfg.Metrics.Enabled {
		a.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.Metrics = prometheus.NewAppMetrics(a.Collector)
	}

	if a.Cache, err = a.buildCache(ctx); err != nil {
		return nil, err
	}
	loader := cache.NewLoader(a.Cache, cfg.Cache.TTL, logger, a.Metrics)
	if cfg.Cache.Backend == config.CacheBackendNone {
		loader = nil
	}

	a.PubChem = remote.NewPubChemClient(cfg.PubChem.BaseURL, a.fetcher("pubchem", cfg.PubChem))
	a.UniProt = remote.NewUniProtClient(cfg.UniProt.BaseURL, a.fetcher("uniprot", cfg.UniProt))
	a.Drugs = lookup.NewDrugSource(a.PubChem, loader)
	a.Proteins = lookup.NewProteinSource(a.UniProt, loader)

	if a.Scorer, err = analysis.NewScorer(cfg.Analysis, logger, a.Metrics); err != nil {
		return nil, err
	}

	a.Publisher = event.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, perr := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger)
		if perr != nil {
			return nil, perr
		}
		a.Publisher = producer
		a.closers = append(a.closers, producer.Close)
	}

	a.Sessions = session.NewManager(session.ManagerConfig{
		IdleTTL:       cfg.Session.IdleTTL,
		MaxSessions:   cfg.Session.MaxSessions,
		SweepInterval: cfg.Session.SweepInterval,
	}, a.SessionDeps())
	a.closers = append(a.closers, func() error { a.Sessions.Close(); return nil })

	logger.Info("application assembled",
		logging.String("cache", a.Cache.Tier()),
		logging.String("scorer", a.Scorer.Name()),
		logging.Bool("kafka", cfg.Kafka.Enabled),
		logging.Bool("metrics", cfg.Metrics.Enabled))
	return a, nil
}

// SessionDeps returns the collaborators for a standalone session.
func (a *App) SessionDeps() session.Deps {
	return session.Deps{
		DrugSource:    a.Drugs,
		ProteinSource: a.Proteins,
		Scorer:        a.Scorer,
		Resolver: resolver.Config{
			Debounce:       a.Config.Resolver.Debounce,
			MaxSuggestions: a.Config.Resolver.MaxSuggestions,
			RequestTimeout: a.Config.Resolver.RequestTimeout,
		},
		Publisher: a.Publisher,
		Logger:    a.Logger,
		Metrics:   a.Metrics,
	}
}

func (a *App) buildCache(ctx context.Context) (cache.Cache, error) {
	cc := a.Config.Cache
	switch cc.Backend {
	case config.CacheBackendRedis:
		rc := a.Config.Redis
		client, err := rediscache.NewClient(ctx, rediscache.Options{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			PoolSize:     rc.PoolSize,
			DialTimeout:  rc.DialTimeout,
			ReadTimeout:  rc.ReadTimeout,
			WriteTimeout: rc.WriteTimeout,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return rediscache.NewCache(client, rediscache.WithPrefix(cc.Prefix), rediscache.WithDefaultTTL(cc.TTL)), nil
	case config.CacheBackendNone:
		return cache.NewNop(), nil
	default:
		return cache.NewMemory(cc.Size, cc.TTL), nil
	}
}

func (a *App) fetcher(source string, sc config.SourceConfig) *remote.Fetcher {
	return remote.NewFetcher(source,
		remote.WithTimeout(sc.Timeout),
		remote.WithRetryMax(sc.RetryMax),
		remote.WithRetryWait(sc.RetryWait, 8*sc.RetryWait),
		remote.WithUserAgent(sc.UserAgent),
		remote.WithLogger(a.Logger),
		remote.WithMetrics(a.Metrics))
}

// Handler builds the HTTP route tree.  The returned stop function releases
// the rate limiter.
func (a *App) Handler(version string) (http.Handler, func()) {
	sc := a.Config.Server
	cors := middleware.DefaultCORSConfig(sc.CORSOrigins)
	rc := httpapi.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(a.Sessions, a.Logger, a.Metrics),
		HealthHandler: handlers.NewHealthHandler(version, handlers.CheckFunc{
			Component: "cache." + a.Cache.Tier(),
			Fn:        a.Cache.Ping,
		}),
		CORS:        &cors,
		Logging:     middleware.DefaultLoggingConfig(),
		MaxBodySize: sc.MaxBodySize,
		Logger:      a.Logger,
		Metrics:     a.Metrics,
	}
	if a.Collector != nil {
		rc.MetricsHandler = a.Collector.Handler()
		rc.MetricsPath = a.Config.Metrics.Path
	}

	stop := func() {}
	if sc.RateLimitRPS > 0 {
		rl := middleware.DefaultRateLimitConfig(sc.RateLimitRPS, sc.RateLimitBurst)
		rl.SkipPaths = append(rl.SkipPaths, a.Config.Metrics.Path)
		limiter := middleware.NewTokenBucketLimiter(rl.RequestsPerSecond, rl.BurstSize, rl.CleanupInterval)
		rc.RateLimit = &httpapi.RateLimitSetup{Limiter: limiter, Config: rl}
		stop = limiter.Stop
	}
	return httpapi.NewRouter(rc), stop
}

// Serve runs the HTTP server and the session sweeper until ctx is done.
// With a non-empty configPath, log.level changes on disk are applied live.
func (a *App) Serve(ctx context.Context, version, configPath string) error {
	handler, stop := a.Handler(version)
	defer stop()
	srv := httpapi.NewServer(a.Config.Server, handler, a.Logger)

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			if logging.SetLevel(a.Logger, next.Log.Level) {
				a.Logger.Info("log level reloaded", logging.String("level", next.Log.Level.String()))
			}
		}, func(err error) {
			a.Logger.WithError(err).Warn("ignoring invalid configuration change")
		})
		if err != nil {
			return fmt.Errorf("app: watch config: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return a.Sessions.Run(gctx) })
	return g.Wait()
}

// Close releases every component in reverse construction order.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

//Personal.AI order the ending
