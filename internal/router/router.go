package router

import (
	"log/slog"
	"sync"
	"time"

	"github.com/minerwatch/minerlink/internal/protocol"
)

// Sink consumes parsed domain-update frames for one domain. Each inbound
// update is a full-state snapshot, so a sink may always replace what it holds.
type Sink interface {
	Consume(protocol.DomainUpdate)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(protocol.DomainUpdate)

func (f SinkFunc) Consume(u protocol.DomainUpdate) { f(u) }

// Fanout returns a Sink that forwards every update to all given sinks in order.
func Fanout(sinks ...Sink) Sink {
	return SinkFunc(func(u protocol.DomainUpdate) {
		for _, s := range sinks {
			s.Consume(u)
		}
	})
}

// Metrics is an optional hook for counting routing outcomes.
type Metrics interface {
	FrameRouted(domain string)
	FrameDropped(reason string)
}

// Stats holds cumulative routing counters.
type Stats struct {
	Dispatched int64
	Routed     int64
	Dropped    int64
	Unknown    int64
	Errors     int64
}

// Router classifies inbound frames and dispatches them to per-domain sinks.
// Server-reported errors and frames nobody consumes go to the diagnostics
// sink; nothing a server sends can make Dispatch fail.
type Router struct {
	logger  *slog.Logger
	diags   Diagnostics
	metrics Metrics

	mu    sync.RWMutex
	sinks map[string]Sink
	stats Stats
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics attaches a metrics hook.
func WithMetrics(m Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a Message Router. A nil diagnostics sink falls back to
// structured logging.
func New(diags Diagnostics, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if diags == nil {
		diags = NewSlogDiagnostics(logger)
	}

	r := &Router{
		logger: logger,
		diags:  diags,
		sinks:  make(map[string]Sink),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterSink installs the sink for one domain ("miner", "alert", ...),
// replacing any previous registration. Use Fanout for multiple consumers.
func (r *Router) RegisterSink(domain string, s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[domain] = s
}

// Dispatch routes one parsed frame. Heartbeat and handshake frames are the
// orchestrator's concern and must be filtered before reaching the router.
func (r *Router) Dispatch(frame protocol.Frame) {
	r.mu.Lock()
	r.stats.Dispatched++
	r.mu.Unlock()

	switch f := frame.(type) {
	case protocol.DomainUpdate:
		r.routeUpdate(f)

	case protocol.SubscriptionUpdate:
		r.logger.Debug("subscription acknowledged", "topics", f.Topics)
		r.diags.Record(Event{
			Kind:      EventSubscription,
			FrameType: string(f.Type()),
			At:        time.Now(),
		})

	case protocol.ServerError:
		r.mu.Lock()
		r.stats.Errors++
		r.mu.Unlock()
		r.diags.Record(Event{
			Kind:      EventServerError,
			FrameType: string(f.Kind),
			Detail:    string(f.Data),
			At:        time.Now(),
		})

	case protocol.Unknown:
		r.mu.Lock()
		r.stats.Unknown++
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.FrameDropped("unknown_type")
		}
		r.diags.Record(Event{
			Kind:      EventUnknownFrame,
			FrameType: f.RawType,
			At:        time.Now(),
		})

	default:
		// Control frames that should have been handled upstream.
		r.diags.Record(Event{
			Kind:      EventDroppedFrame,
			FrameType: string(frame.Type()),
			Detail:    "control frame reached router",
			At:        time.Now(),
		})
	}
}

// Stats returns a copy of the cumulative counters.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func (r *Router) routeUpdate(u protocol.DomainUpdate) {
	r.mu.RLock()
	sink, ok := r.sinks[u.Domain]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		r.stats.Dropped++
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.FrameDropped("no_sink")
		}
		r.diags.Record(Event{
			Kind:      EventDroppedFrame,
			FrameType: string(u.Type()),
			Detail:    "no sink registered",
			At:        time.Now(),
		})
		return
	}

	sink.Consume(u)

	r.mu.Lock()
	r.stats.Routed++
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.FrameRouted(u.Domain)
	}
}
