// API server entry point for dtiscope.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/turtacn/dtiscope/internal/app"
	"github.com/turtacn/dtiscope/internal/config"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment and defaults when empty)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to assemble application", logging.Err(err))
		return err
	}
	defer a.Close()

	logger.Info("starting dtiscope API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()))
	if err := a.Serve(ctx, version, configPath); err != nil {
		logger.Error("server exited with error", logging.Err(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

//Personal.AI order the ending
