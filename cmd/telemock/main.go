package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/telemock/telemock/internal/catalog"
	"github.com/telemock/telemock/internal/config"
	"github.com/telemock/telemock/internal/logging"
	"github.com/telemock/telemock/internal/monitoring"
	"github.com/telemock/telemock/internal/server"
	"github.com/telemock/telemock/internal/store"
	"github.com/telemock/telemock/internal/watchdog"
)

var (
	configPath = flag.String("config", "", "Path to config file (defaults used when empty)")
	version    = flag.Bool("version", false, "Print version and exit")
	appVersion = "dev" // Set by -ldflags during build
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("telemock %s\n", appVersion)
		os.Exit(0)
	}

	// A .env file may carry TELEMOCK_* overrides; absence is fine
	_ = godotenv.Load()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:  logging.Level(cfg.Logging.Level),
		Format: logging.Format(cfg.Logging.Format),
		Output: os.Stdout,
	})
	logging.SetDefault(logger)

	logger.Info("Starting telemock",
		slog.String("version", appVersion),
		slog.String("address", cfg.Server.Address),
		slog.String("store_dsn", cfg.Store.DSN),
		slog.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	st, err := store.New(cfg.Store.DSN)
	if err != nil {
		logger.Error("Failed to initialize event store", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.New()
	}

	srv, err := server.New(cfg, logger, catalog.Default(), st, metrics)
	if err != nil {
		logger.Error("Failed to build server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := watchdog.NewNotifier(logger)
	if notifier.WatchdogEnabled() {
		go notifier.Run(ctx)
	}

	// Shut the server down on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping...")
		notifier.NotifyStopping()
		cancel()
	}()

	notifier.NotifyReady()
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}
