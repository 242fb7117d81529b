package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no heartbeat reply)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
)

// State is the connection manager's externally visible state. Exactly one
// State governs a Manager at any moment; transitions are sequential.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// InboundMessage wraps raw frame bytes with a receive timestamp.
type InboundMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// CloseInfo describes why a transport terminated. WasClean is true when the
// close was locally requested or the peer closed with a normal status.
type CloseInfo struct {
	Err      error
	WasClean bool
}

// Observer receives lifecycle notifications from a Manager. All methods are
// called with the manager's lock released and must not call back into the
// manager synchronously. The zero-value NopObserver ignores everything.
type Observer interface {
	StateChanged(old, new State)
	ReconnectScheduled(attempt int, delay time.Duration)
	HeartbeatRTT(rtt time.Duration)
}

// NopObserver is an Observer that discards all notifications.
type NopObserver struct{}

func (NopObserver) StateChanged(old, new State)                      {}
func (NopObserver) ReconnectScheduled(attempt int, delay time.Duration) {}
func (NopObserver) HeartbeatRTT(rtt time.Duration)                   {}

// TransportConfig configures one WebSocket transport generation.
type TransportConfig struct {
	URL              string        // Backend realtime endpoint (ws:// or wss://)
	APIKey           string        // Optional bearer token
	HandshakeTimeout time.Duration // Dial deadline
	WriteTimeout     time.Duration // Per-write deadline
	BufferSize       int           // Inbound message channel capacity
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// ManagerConfig configures a connection Manager.
type ManagerConfig struct {
	URL    string // Backend realtime endpoint
	APIKey string // Optional bearer token

	Reconnect PolicyConfig // Backoff schedule

	HeartbeatInterval    time.Duration // Ping emit period while connected
	MissedHeartbeatLimit int           // Silent intervals before the link is declared stale; 0 disables

	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration
	BufferSize       int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Reconnect:            DefaultPolicyConfig(),
		HeartbeatInterval:    15 * time.Second,
		MissedHeartbeatLimit: 3,
		WriteTimeout:         5 * time.Second,
		HandshakeTimeout:     10 * time.Second,
		BufferSize:           1000,
	}
}

func (cfg ManagerConfig) transportConfig() TransportConfig {
	tc := DefaultTransportConfig()
	tc.URL = cfg.URL
	tc.APIKey = cfg.APIKey
	if cfg.HandshakeTimeout > 0 {
		tc.HandshakeTimeout = cfg.HandshakeTimeout
	}
	if cfg.WriteTimeout > 0 {
		tc.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.BufferSize > 0 {
		tc.BufferSize = cfg.BufferSize
	}
	return tc
}
