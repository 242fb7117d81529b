package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/minerwatch/minerlink/internal/protocol"
	"github.com/minerwatch/minerlink/internal/router"
)

// Manager owns the realtime link to the miner-monitor backend: one transport
// generation at a time, the heartbeat that guards it, the backoff policy that
// revives it, and the subscription set reconciled on every successful open.
//
// All state lives behind one mutex; transitions are sequential. Callbacks
// from a superseded transport generation are ignored, so a socket that opens
// or dies late can never mutate current state.
type Manager struct {
	cfg    ManagerConfig
	policy *Policy
	reg    *Registry
	router *router.Router
	diags  router.Diagnostics
	obs    Observer
	logger *slog.Logger
	dial   DialFunc

	mu        sync.Mutex
	state     State
	gen       uint64
	transport Transport
	hb        *heartbeat
	attempts  int
	manual    bool
	retry     *time.Timer
	clientID  string
	lastErr   error
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver attaches a lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(m *Manager) {
		if obs != nil {
			m.obs = obs
		}
	}
}

// WithDiagnostics sets the diagnostics sink for parse failures.
func WithDiagnostics(d router.Diagnostics) Option {
	return func(m *Manager) {
		if d != nil {
			m.diags = d
		}
	}
}

// WithDialer overrides transport construction. Used by tests.
func WithDialer(dial DialFunc) Option {
	return func(m *Manager) {
		if dial != nil {
			m.dial = dial
		}
	}
}

// NewManager creates a connection Manager. The router receives every inbound
// frame except heartbeat and handshake control frames.
func NewManager(cfg ManagerConfig, rt *router.Router, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:    cfg,
		policy: NewPolicy(cfg.Reconnect),
		reg:    NewRegistry(),
		router: rt,
		diags:  router.NewSlogDiagnostics(logger),
		obs:    NopObserver{},
		logger: logger,
		dial:   NewTransport,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent transport or liveness error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ClientID returns the server-assigned session identifier from the last
// handshake. Informational only.
func (m *Manager) ClientID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clientID
}

// Subscribe adds a topic to the desired set. While connected, the full set is
// re-sent immediately; otherwise it is reconciled on the next successful open.
func (m *Manager) Subscribe(topic string) {
	m.reg.Subscribe(topic)
	m.sendSubscriptions()
}

// Unsubscribe removes a topic from the desired set.
func (m *Manager) Unsubscribe(topic string) {
	m.reg.Unsubscribe(topic)
	m.sendSubscriptions()
}

// EnsureConnected starts connecting unless an attempt is already in flight.
// A call while connecting, connected, reconnecting, or faulted is a no-op:
// in each of those states either a transport is live or a retry is already
// scheduled.
func (m *Manager) EnsureConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisconnected {
		return
	}

	m.manual = false
	m.attempts = 0
	m.startConnectingLocked()
}

// Disconnect closes the link deliberately: any pending retry timer is
// cancelled, the transport is closed, and no automatic reconnection follows.
func (m *Manager) Disconnect() {
	m.mu.Lock()

	m.manual = true
	m.cancelRetryLocked()
	m.stopHeartbeatLocked()

	tr := m.transport
	m.transport = nil
	m.gen++ // anything still in flight for the old generation is now stale

	if m.state != StateDisconnected {
		m.transitionLocked(StateDisconnected)
	}
	m.mu.Unlock()

	if tr != nil {
		tr.Close()
	}
}

// Send writes one outbound frame. It returns false without queuing when the
// link is not connected: telemetry is supersede-by-newer, so stale commands
// are never replayed after an outage.
func (m *Manager) Send(frame protocol.Frame) bool {
	m.mu.Lock()
	if m.state != StateConnected || m.transport == nil {
		m.mu.Unlock()
		return false
	}
	tr := m.transport
	m.mu.Unlock()

	data, err := protocol.Marshal(frame)
	if err != nil {
		m.logger.Error("failed to marshal outbound frame", "type", frame.Type(), "error", err)
		return false
	}
	return tr.Send(data)
}

// startConnectingLocked begins a new transport generation. Caller holds mu.
func (m *Manager) startConnectingLocked() {
	m.transitionLocked(StateConnecting)
	m.gen++
	gen := m.gen
	go m.connect(gen)
}

// connect dials one transport generation and installs it on success.
func (m *Manager) connect(gen uint64) {
	tr := m.dial(m.cfg.transportConfig(), m.logger)
	err := tr.Open(context.Background())

	m.mu.Lock()
	if gen != m.gen {
		// Superseded while dialing; the result no longer matters.
		m.mu.Unlock()
		if err == nil {
			tr.Close()
		}
		return
	}

	if err != nil {
		m.lastErr = err
		m.logger.Warn("connection attempt failed", "attempt", m.attempts, "error", err)
		m.scheduleRetryLocked()
		m.mu.Unlock()
		return
	}

	m.transport = tr
	m.attempts = 0
	m.clientID = ""
	m.lastErr = nil
	m.transitionLocked(StateConnected)

	hb := newHeartbeat(
		m.cfg.HeartbeatInterval,
		m.cfg.MissedHeartbeatLimit,
		func(f protocol.Frame) bool { return m.sendOn(tr, f) },
		func() { m.heartbeatStale(gen, tr) },
		m.logger,
	)
	m.hb = hb
	hb.start()

	topics := m.reg.Topics()
	m.mu.Unlock()

	// Reconcile the full desired set: the server holds no subscription state
	// across disconnects, so exactly one complete subscribe frame per open.
	m.sendOn(tr, protocol.Subscribe{Topics: topics})
	m.logger.Info("connected", "topics", len(topics))

	go m.readLoop(gen, tr)
}

// readLoop forwards one generation's inbound frames and close notification.
func (m *Manager) readLoop(gen uint64, tr Transport) {
	for msg := range tr.Messages() {
		m.handleInbound(gen, msg)
	}
	info := <-tr.Closed()
	m.handleClosed(gen, info)
}

// handleInbound parses and routes one inbound frame. Heartbeat and handshake
// frames are consumed here; everything else goes to the router.
func (m *Manager) handleInbound(gen uint64, msg InboundMessage) {
	frame, err := protocol.Parse(msg.Data)
	if err != nil {
		m.diags.Record(router.Event{
			Kind: router.EventParseError,
			Err:  err,
			At:   time.Now(),
		})
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.hb != nil {
		m.hb.observe()
	}

	switch f := frame.(type) {
	case protocol.Ping:
		tr := m.transport
		m.mu.Unlock()
		if tr != nil {
			m.sendOn(tr, protocol.Pong{Timestamp: f.Timestamp})
		}
		return

	case protocol.Pong:
		m.mu.Unlock()
		if !f.Timestamp.IsZero() {
			if rtt := msg.ReceivedAt.Sub(f.Timestamp); rtt >= 0 {
				m.obs.HeartbeatRTT(rtt)
			}
		}
		return

	case protocol.ConnectionEstablished:
		m.clientID = f.ClientID
		m.mu.Unlock()
		m.logger.Debug("handshake acknowledged", "client_id", f.ClientID)
		m.diags.Record(router.Event{
			Kind:   router.EventHandshake,
			Detail: f.ClientID,
			At:     time.Now(),
		})
		return
	}

	m.mu.Unlock()

	if u, ok := frame.(protocol.DomainUpdate); ok {
		u.ReceivedAt = msg.ReceivedAt
		frame = u
	}
	m.router.Dispatch(frame)
}

// handleClosed reacts to a transport's termination.
func (m *Manager) handleClosed(gen uint64, info CloseInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}

	m.stopHeartbeatLocked()
	m.transport = nil
	if info.Err != nil {
		m.lastErr = info.Err
	}

	if m.manual {
		if m.state != StateDisconnected {
			m.transitionLocked(StateDisconnected)
		}
		return
	}

	m.logger.Warn("transport closed unexpectedly",
		"clean", info.WasClean,
		"error", info.Err,
	)
	m.scheduleRetryLocked()
}

// scheduleRetryLocked consults the policy and schedules the next attempt, or
// enters the faulted state when attempts are exhausted. Caller holds mu.
func (m *Manager) scheduleRetryLocked() {
	gen := m.gen

	if m.policy.Exhausted(m.attempts) {
		m.lastErr = ErrRetriesExhausted
		m.transitionLocked(StateFaulted)

		delay := m.policy.FaultedRetryInterval()
		m.logger.Error("reconnect attempts exhausted, backing off",
			"attempts", m.attempts,
			"retry_in", delay,
		)
		m.retry = time.AfterFunc(delay, func() { m.retryFromFaulted(gen) })
		return
	}

	attempt := m.attempts
	delay := m.policy.NextDelay(attempt)
	m.attempts++
	m.transitionLocked(StateReconnecting)
	m.obs.ReconnectScheduled(attempt, delay)

	m.retry = time.AfterFunc(delay, func() { m.retryAttempt(gen) })
}

// retryAttempt fires when a reconnect delay elapses.
func (m *Manager) retryAttempt(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateReconnecting {
		return
	}
	m.retry = nil
	m.startConnectingLocked()
}

// retryFromFaulted fires after the single long-interval faulted retry,
// restarting the whole backoff sequence.
func (m *Manager) retryFromFaulted(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateFaulted {
		return
	}
	m.retry = nil
	m.attempts = 0
	m.startConnectingLocked()
}

// heartbeatStale forces a close when the link has gone silent past the
// liveness deadline. The resulting close event drives reconnection.
func (m *Manager) heartbeatStale(gen uint64, tr Transport) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.lastErr = ErrStaleConnection
	m.mu.Unlock()

	m.logger.Warn("closing stale connection")
	tr.Close()
}

// sendSubscriptions pushes the current full topic set if connected.
func (m *Manager) sendSubscriptions() {
	m.mu.Lock()
	if m.state != StateConnected || m.transport == nil {
		m.mu.Unlock()
		return
	}
	tr := m.transport
	m.mu.Unlock()

	m.sendOn(tr, protocol.Subscribe{Topics: m.reg.Topics()})
}

// sendOn marshals and writes a frame on a specific transport.
func (m *Manager) sendOn(tr Transport, frame protocol.Frame) bool {
	data, err := protocol.Marshal(frame)
	if err != nil {
		m.logger.Error("failed to marshal frame", "type", frame.Type(), "error", err)
		return false
	}
	return tr.Send(data)
}

func (m *Manager) transitionLocked(next State) {
	prev := m.state
	if prev == next {
		return
	}
	m.state = next
	m.logger.Info("connection state changed", "from", prev, "to", next)
	m.obs.StateChanged(prev, next)
}

func (m *Manager) cancelRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.hb != nil {
		m.hb.halt()
		m.hb = nil
	}
}
