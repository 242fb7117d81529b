package connection

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport owns one underlying WebSocket for its lifetime. A transport is
// never reused: the Manager replaces it wholesale on every reconnect
// (one "generation" per transport).
//
// Delivery is at-most-once: Send reports false when the frame could not be
// written and never retries. Inbound frames arrive on Messages in the order
// the socket delivered them; Closed fires exactly once when the socket dies,
// whether remotely or via Close.
type Transport interface {
	Open(ctx context.Context) error
	Send(data []byte) bool
	Close()
	Messages() <-chan InboundMessage
	Closed() <-chan CloseInfo
}

// DialFunc constructs a transport. The Manager's default is NewTransport;
// tests substitute their own.
type DialFunc func(cfg TransportConfig, logger *slog.Logger) Transport

// wsTransport implements Transport over gorilla/websocket.
type wsTransport struct {
	cfg    TransportConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan InboundMessage
	closed   chan CloseInfo
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	mu        sync.RWMutex
	open      bool
	local     bool // Close() was called locally
	closeOnce sync.Once
}

// NewTransport creates an unopened WebSocket transport.
func NewTransport(cfg TransportConfig, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &wsTransport{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan InboundMessage, cfg.BufferSize),
		closed:   make(chan CloseInfo, 1),
		done:     make(chan struct{}),
	}
}

var _ DialFunc = NewTransport

// Open dials the backend. It may be called at most once.
func (t *wsTransport) Open(ctx context.Context) error {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if t.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, header)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.open = true
	t.mu.Unlock()

	go t.readLoop()

	t.logger.Debug("websocket connected", "url", t.cfg.URL)
	return nil
}

// Send writes one frame. It returns false when the transport is not open or
// the write failed; the frame is dropped either way.
func (t *wsTransport) Send(data []byte) bool {
	t.mu.RLock()
	if !t.open {
		t.mu.RUnlock()
		return false
	}
	conn := t.conn
	t.mu.RUnlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.logger.Debug("websocket write failed", "error", err)
		return false
	}
	return true
}

// Close terminates the transport. Safe to call multiple times and before
// Open; Closed still fires exactly once.
func (t *wsTransport) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		hadConn := t.conn != nil
		t.open = false
		t.local = true
		conn := t.conn
		t.mu.Unlock()

		close(t.done)
		if conn != nil {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			conn.Close()
		}
		if !hadConn {
			// Never opened, so no read loop will report the close.
			t.finish(CloseInfo{WasClean: true})
		}
	})
}

func (t *wsTransport) Messages() <-chan InboundMessage { return t.messages }

func (t *wsTransport) Closed() <-chan CloseInfo { return t.closed }

// readLoop pumps inbound frames until the socket dies, then emits the close
// notification.
func (t *wsTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			t.mu.Lock()
			t.open = false
			local := t.local
			t.mu.Unlock()

			info := CloseInfo{Err: err}
			if local || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				info = CloseInfo{WasClean: true}
			}
			t.finish(info)
			return
		}

		msg := InboundMessage{Data: data, ReceivedAt: receivedAt}
		select {
		case <-t.done:
			// Locally closed; discard anything still in flight.
		case t.messages <- msg:
		default:
			t.logger.Warn("inbound buffer full, dropping frame")
		}
	}
}

// finish closes the message stream and delivers the close notification.
// Reached exactly once per transport.
func (t *wsTransport) finish(info CloseInfo) {
	close(t.messages)
	t.closed <- info
}
