// Worker entry point for dtiscope: consumes selection and analysis events
// from Kafka and keeps the latest state of every session in the cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/dtiscope/internal/app"
	"github.com/turtacn/dtiscope/internal/config"
	"github.com/turtacn/dtiscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
)

const (
	defaultHealthAddr     = ":8081"
	defaultGroupID        = "dtiscope-worker"
	defaultMaxRetries     = 3
	defaultHandlerTimeout = 10 * time.Second
	defaultRecordTTL      = 24 * time.Hour
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment and defaults when empty)")
	healthAddr := flag.String("health-addr", defaultHealthAddr, "listen address for /healthz, /readyz and /metrics")
	groupID := flag.String("group", defaultGroupID, "Kafka consumer group")
	ttl := flag.Duration("ttl", defaultRecordTTL, "lifetime of projected session records")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*configPath, *healthAddr, *groupID, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, healthAddr, groupID string, ttl time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is not configured")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	collector := a.Collector
	if collector == nil {
		collector = prometheus.NewNoopCollector()
	}
	projector := NewProjector(a.Cache, ttl, collector, logger)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: groupID,
	}, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	logger.Info("starting dtiscope worker",
		logging.String("version", version),
		logging.String("topic", cfg.Kafka.Topic),
		logging.String("group", groupID),
		logging.String("cache", a.Cache.Tier()))

	healthSrv := &http.Server{
		Addr:              healthAddr,
		Handler:           healthMux(a, collector),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("health server listening", logging.String("addr", healthAddr))
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return consumer.Run(gctx, projector.Handle)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = consumer.Close()
		return healthSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("dtiscope worker stopped",
		logging.Int64("consumed", consumer.Consumed()),
		logging.Int64("skipped", consumer.Skipped()))
	return err
}

func healthMux(a *app.App, collector prometheus.MetricsCollector) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.Cache.Ping(r.Context()); err != nil {
			http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", collector.Handler())
	return mux
}

//Personal.AI order the ending
