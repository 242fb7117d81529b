package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minerwatch/minerlink/internal/config"
	"github.com/minerwatch/minerlink/internal/connection"
	"github.com/minerwatch/minerlink/internal/database"
	"github.com/minerwatch/minerlink/internal/lifecycle"
	"github.com/minerwatch/minerlink/internal/metrics"
	"github.com/minerwatch/minerlink/internal/router"
	"github.com/minerwatch/minerlink/internal/store"
	"github.com/minerwatch/minerlink/internal/version"
	"github.com/minerwatch/minerlink/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/minerlink.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting minerlinkd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.Backend.WSURL,
		"topics", cfg.Topics,
		"history_enabled", cfg.History.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics registry
	reg := metrics.New()

	// Live fleet state
	st := store.New(logger)

	// Router: store consumes every domain; history writers join below.
	diags := router.NewSlogDiagnostics(logger)
	rtr := router.New(diags, logger, router.WithMetrics(reg))

	minerSinks := []router.Sink{st}
	alertSinks := []router.Sink{st}

	// Optional telemetry history
	var (
		telemetryWriter *writer.TelemetryWriter
		alertWriter     *writer.AlertWriter
	)
	if cfg.History.Enabled {
		logger.Info("connecting to history database",
			"host", cfg.History.Postgres.Host,
			"port", cfg.History.Postgres.Port,
			"database", cfg.History.Postgres.Name,
		)

		pool, err := database.Connect(ctx, cfg.History.Postgres)
		if err != nil {
			logger.Error("failed to connect to history database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		logger.Info("history database connected")

		telemetryWriter = writer.NewTelemetryWriter(cfg.History.Writer, pool, logger)
		telemetryWriter.SetFlushRecorder(reg)
		alertWriter = writer.NewAlertWriter(cfg.History.Writer, pool, logger)
		alertWriter.SetFlushRecorder(reg)

		if err := telemetryWriter.Start(ctx); err != nil {
			logger.Error("failed to start telemetry writer", "error", err)
			os.Exit(1)
		}
		if err := alertWriter.Start(ctx); err != nil {
			logger.Error("failed to start alert writer", "error", err)
			os.Exit(1)
		}

		minerSinks = append(minerSinks, telemetryWriter)
		alertSinks = append(alertSinks, alertWriter)
	}

	rtr.RegisterSink("miner", router.Fanout(minerSinks...))
	rtr.RegisterSink("alert", router.Fanout(alertSinks...))
	rtr.RegisterSink("system", st)

	// Connection manager
	mgr := connection.NewManager(cfg.ManagerConfig(), rtr, logger,
		connection.WithObserver(reg),
		connection.WithDiagnostics(diags),
	)
	for _, topic := range cfg.Topics {
		mgr.Subscribe(topic)
	}

	// Metrics server
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, reg.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting metrics server",
			"port", cfg.Metrics.Port,
			"path", cfg.Metrics.Path,
		)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	// Lifecycle bridge owns connect/disconnect from here on.
	bridge := lifecycle.New(mgr, logger)
	g.Go(func() error {
		return bridge.Run(gctx)
	})

	mgr.EnsureConnected()

	logger.Info("minerlinkd running",
		"instance_id", cfg.Instance.ID,
		"metrics_url", fmt.Sprintf("http://localhost:%d%s", cfg.Metrics.Port, cfg.Metrics.Path),
	)

	// Wait for shutdown
	<-gctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	metricsServer.Shutdown(shutdownCtx)

	if err := g.Wait(); err != nil {
		logger.Error("component failed", "error", err)
	}

	if telemetryWriter != nil {
		telemetryWriter.Stop(shutdownCtx)
	}
	if alertWriter != nil {
		alertWriter.Stop(shutdownCtx)
	}

	logger.Info("minerlinkd stopped")
}
