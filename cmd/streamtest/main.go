// streamtest connects to a miner-monitor backend and streams parsed frames
// to the console.
//
// Usage: go run ./cmd/streamtest --url ws://localhost:8080/ws --topics miners,alerts
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/minerwatch/minerlink/internal/connection"
	"github.com/minerwatch/minerlink/internal/model"
	"github.com/minerwatch/minerlink/internal/protocol"
	"github.com/minerwatch/minerlink/internal/router"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "backend realtime endpoint")
	apiKey := flag.String("api-key", os.Getenv("MINERLINK_API_KEY"), "bearer token (optional)")
	topics := flag.String("topics", "miners,alerts,system", "comma-separated topics to subscribe")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Router with console printer sinks
	diags := router.NewSlogDiagnostics(logger)
	rtr := router.New(diags, logger)
	rtr.RegisterSink("miner", router.SinkFunc(func(u protocol.DomainUpdate) {
		printMiners(u, *verbose)
	}))
	rtr.RegisterSink("alert", router.SinkFunc(func(u protocol.DomainUpdate) {
		printAlerts(u, *verbose)
	}))
	rtr.RegisterSink("system", router.SinkFunc(func(u protocol.DomainUpdate) {
		fmt.Printf("[SYSTEM] %s\n", u.Data)
	}))

	// Connection manager
	cfg := connection.DefaultManagerConfig()
	cfg.URL = *url
	cfg.APIKey = *apiKey

	mgr := connection.NewManager(cfg, rtr, logger,
		connection.WithDiagnostics(diags),
	)
	for _, topic := range strings.Split(*topics, ",") {
		mgr.Subscribe(strings.TrimSpace(topic))
	}

	logger.Info("connecting", "url", *url, "topics", *topics)
	mgr.EnsureConnected()

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := rtr.Stats()
				logger.Info("stats",
					"conn_state", mgr.State(),
					"client_id", mgr.ClientID(),
					"dispatched", stats.Dispatched,
					"routed", stats.Routed,
					"dropped", stats.Dropped,
					"unknown", stats.Unknown,
					"errors", stats.Errors,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	mgr.Disconnect()
	logger.Info("shutdown complete")
}

func printMiners(u protocol.DomainUpdate, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(json.RawMessage(u.Data), "", "  ")
		fmt.Printf("[MINERS] %s\n", data)
		return
	}

	var payload model.MinerUpdatePayload
	if err := json.Unmarshal(u.Data, &payload); err != nil {
		fmt.Printf("[MINERS] unparseable payload: %v\n", err)
		return
	}
	for _, m := range payload.Miners {
		fmt.Printf("[MINER] id=%s host=%s hashrate=%.1fGH/s temp=%.1fC shares=%d/%d best=%.0f\n",
			m.MinerID, m.Hostname, m.HashrateGHS, m.TemperatureC,
			m.SharesAccepted, m.SharesRejected, m.BestDifficulty)
	}
}

func printAlerts(u protocol.DomainUpdate, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(json.RawMessage(u.Data), "", "  ")
		fmt.Printf("[ALERTS] %s\n", data)
		return
	}

	var payload model.AlertUpdatePayload
	if err := json.Unmarshal(u.Data, &payload); err != nil {
		fmt.Printf("[ALERTS] unparseable payload: %v\n", err)
		return
	}
	for _, a := range payload.Alerts {
		fmt.Printf("[ALERT] severity=%s code=%s miner=%s resolved=%t msg=%q\n",
			a.Severity, a.Code, a.MinerID, a.Resolved, a.Message)
	}
}
