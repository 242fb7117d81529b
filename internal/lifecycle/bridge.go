// Package lifecycle nudges the connection manager on host lifecycle events.
//
// The bridge watches for SIGHUP, suspend/resume (detected as wall-clock
// jumps), and runs a periodic watchdog. Every event funnels into a single
// EnsureConnected call, which the manager treats as a no-op unless the
// connection is actually down.
package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	// DefaultWatchdogInterval is how often the bridge nudges the connector.
	DefaultWatchdogInterval = 30 * time.Second

	// DefaultJumpThreshold is how far past the expected tick the wall clock
	// must land before the gap is treated as a suspend/resume.
	DefaultJumpThreshold = 5 * time.Second
)

// Connector is the subset of the connection manager the bridge drives.
type Connector interface {
	EnsureConnected()
	Disconnect()
}

// Bridge translates host lifecycle events into connector nudges.
type Bridge struct {
	conn   Connector
	logger *slog.Logger

	interval      time.Duration
	jumpThreshold time.Duration

	now func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithWatchdogInterval overrides the watchdog tick interval.
func WithWatchdogInterval(d time.Duration) Option {
	return func(b *Bridge) { b.interval = d }
}

// WithJumpThreshold overrides the suspend/resume detection threshold.
func WithJumpThreshold(d time.Duration) Option {
	return func(b *Bridge) { b.jumpThreshold = d }
}

// New creates a lifecycle bridge for the given connector.
func New(conn Connector, logger *slog.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		conn:          conn,
		logger:        logger,
		interval:      DefaultWatchdogInterval,
		jumpThreshold: DefaultJumpThreshold,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run blocks until ctx is cancelled, nudging the connector on SIGHUP, on
// resume from suspend, and on every watchdog tick. On cancellation it
// disconnects the connector and returns.
func (b *Bridge) Run(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	last := b.now()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("lifecycle bridge stopping")
			b.conn.Disconnect()
			return nil

		case <-hup:
			b.logger.Info("received SIGHUP, checking connection")
			b.conn.EnsureConnected()

		case <-ticker.C:
			now := b.now()
			if gap := now.Sub(last); gap > b.interval+b.jumpThreshold {
				b.logger.Info("wall clock jumped, assuming resume from suspend",
					"gap", gap,
				)
			}
			last = now
			b.conn.EnsureConnected()
		}
	}
}
