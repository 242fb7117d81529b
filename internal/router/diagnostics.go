package router

import (
	"log/slog"
	"time"
)

// Diagnostic event kinds.
const (
	EventParseError   = "parse_error"
	EventUnknownFrame = "unknown_frame"
	EventDroppedFrame = "dropped_frame"
	EventServerError  = "server_error"
	EventSubscription = "subscription_ack"
	EventHandshake    = "handshake"
)

// Event is one diagnostic record emitted by the realtime layer.
type Event struct {
	Kind      string
	FrameType string
	Detail    string
	Err       error
	At        time.Time
}

// Diagnostics receives diagnostic events. Implementations must not block;
// events are emitted from the connection's dispatch path.
type Diagnostics interface {
	Record(Event)
}

// slogDiagnostics logs every event through a structured logger.
type slogDiagnostics struct {
	logger *slog.Logger
}

// NewSlogDiagnostics returns a Diagnostics that writes events to logger.
func NewSlogDiagnostics(logger *slog.Logger) Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogDiagnostics{logger: logger}
}

func (d *slogDiagnostics) Record(ev Event) {
	attrs := []any{"kind", ev.Kind, "frame_type", ev.FrameType}
	if ev.Detail != "" {
		attrs = append(attrs, "detail", ev.Detail)
	}
	if ev.Err != nil {
		attrs = append(attrs, "error", ev.Err)
	}

	switch ev.Kind {
	case EventParseError, EventServerError:
		d.logger.Warn("realtime diagnostic", attrs...)
	default:
		d.logger.Debug("realtime diagnostic", attrs...)
	}
}
