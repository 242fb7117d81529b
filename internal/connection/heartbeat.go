package connection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/minerwatch/minerlink/internal/protocol"
)

// heartbeat emits periodic ping frames while a transport is open and watches
// for inbound silence. Any inbound frame counts as liveness, not just pong
// replies. One heartbeat exists per connected generation; it is created on
// entering the connected state and stopped on leaving it.
type heartbeat struct {
	interval    time.Duration
	missedLimit int // silent intervals tolerated; 0 disables the deadline
	send        func(protocol.Frame) bool
	onStale     func()
	logger      *slog.Logger

	mu       sync.Mutex
	lastSeen time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func newHeartbeat(interval time.Duration, missedLimit int, send func(protocol.Frame) bool, onStale func(), logger *slog.Logger) *heartbeat {
	return &heartbeat{
		interval:    interval,
		missedLimit: missedLimit,
		send:        send,
		onStale:     onStale,
		logger:      logger,
		lastSeen:    time.Now(),
		stop:        make(chan struct{}),
	}
}

// start launches the emit loop.
func (h *heartbeat) start() {
	go h.loop()
}

// halt stops the emit loop. Idempotent.
func (h *heartbeat) halt() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// observe records inbound activity as a liveness signal.
func (h *heartbeat) observe() {
	h.mu.Lock()
	h.lastSeen = time.Now()
	h.mu.Unlock()
}

func (h *heartbeat) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if h.missedLimit > 0 {
				h.mu.Lock()
				silent := time.Since(h.lastSeen)
				h.mu.Unlock()

				if silent > h.interval*time.Duration(h.missedLimit) {
					h.logger.Warn("no inbound traffic, connection stale",
						"silent", silent,
						"limit", h.interval*time.Duration(h.missedLimit),
					)
					h.onStale()
					return
				}
			}

			if !h.send(protocol.Ping{Timestamp: time.Now()}) {
				h.logger.Debug("heartbeat ping dropped")
			}
		}
	}
}
