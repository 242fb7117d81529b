package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FrameType is the wire-level discriminator carried in every frame.
type FrameType string

// Outbound frame types (client → server).
const (
	TypeSubscribe FrameType = "subscribe"
	TypePing      FrameType = "ping"
	TypePong      FrameType = "pong"
)

// Inbound frame types (server → client).
const (
	TypeConnectionEstablished FrameType = "connection_established"
	TypeSubscriptionUpdate    FrameType = "subscription_update"
	TypeError                 FrameType = "error"
	TypeValidationError       FrameType = "validation_error"
	TypeProcessingError       FrameType = "processing_error"
)

// updateSuffix marks domain snapshot frames ("miner_update", "alert_update", ...).
const updateSuffix = "_update"

// Frame is one wire message, inbound or outbound.
type Frame interface {
	Type() FrameType
}

// Subscribe declares the client's full desired topic set. The server holds no
// subscription state across disconnects, so the list is always complete,
// never a diff.
type Subscribe struct {
	Topics []string
}

func (Subscribe) Type() FrameType { return TypeSubscribe }

// Ping is a liveness probe. Either side may originate one.
type Ping struct {
	Timestamp time.Time
}

func (Ping) Type() FrameType { return TypePing }

// Pong answers a Ping, echoing the probe timestamp when one was carried.
type Pong struct {
	Timestamp time.Time
}

func (Pong) Type() FrameType { return TypePong }

// ConnectionEstablished is the server's handshake acknowledgement. The
// client identifier is informational only.
type ConnectionEstablished struct {
	ClientID string
}

func (ConnectionEstablished) Type() FrameType { return TypeConnectionEstablished }

// SubscriptionUpdate acknowledges a subscription change.
type SubscriptionUpdate struct {
	Topics []string
	Raw    json.RawMessage
}

func (SubscriptionUpdate) Type() FrameType { return TypeSubscriptionUpdate }

// DomainUpdate is a full-state snapshot for one subscribed domain
// ("miner", "alert", "system", ...). The payload is passed through verbatim;
// parsing it is the consuming sink's concern.
type DomainUpdate struct {
	Domain     string
	Data       json.RawMessage
	ReceivedAt time.Time
}

func (u DomainUpdate) Type() FrameType { return FrameType(u.Domain + updateSuffix) }

// ServerError is a server-reported error, validation_error, or
// processing_error frame.
type ServerError struct {
	Kind FrameType
	Data json.RawMessage
}

func (e ServerError) Type() FrameType { return e.Kind }

// Unknown is any frame whose type this client does not understand. It is
// recorded for diagnostics and otherwise ignored, keeping the client forward
// compatible with newer servers.
type Unknown struct {
	RawType string
	Raw     json.RawMessage
}

func (u Unknown) Type() FrameType { return FrameType(u.RawType) }

// envelope is the minimal shape every frame shares on the wire.
type envelope struct {
	Type      string          `json:"type"`
	Topics    []string        `json:"topics,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	ClientID  string          `json:"client_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Parse decodes one inbound frame. It returns an error only for undecodable
// JSON or a missing type tag; an unrecognized type parses successfully into
// Unknown so that newer server frame types never disturb the connection.
func Parse(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("parse frame: missing type tag")
	}

	switch FrameType(env.Type) {
	case TypeConnectionEstablished:
		return ConnectionEstablished{ClientID: env.ClientID}, nil

	case TypeSubscriptionUpdate:
		return SubscriptionUpdate{Topics: env.Topics, Raw: json.RawMessage(data)}, nil

	case TypePing:
		return Ping{Timestamp: parseTimestamp(env.Timestamp)}, nil

	case TypePong:
		return Pong{Timestamp: parseTimestamp(env.Timestamp)}, nil

	case TypeError, TypeValidationError, TypeProcessingError:
		return ServerError{Kind: FrameType(env.Type), Data: env.Data}, nil
	}

	if domain, ok := strings.CutSuffix(env.Type, updateSuffix); ok && domain != "" {
		return DomainUpdate{Domain: domain, Data: env.Data}, nil
	}

	return Unknown{RawType: env.Type, Raw: json.RawMessage(data)}, nil
}

// Marshal encodes an outbound frame.
func Marshal(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case Subscribe:
		topics := v.Topics
		if topics == nil {
			topics = []string{}
		}
		return json.Marshal(struct {
			Type   string   `json:"type"`
			Topics []string `json:"topics"`
		}{string(TypeSubscribe), topics})

	case Ping:
		return json.Marshal(struct {
			Type      string `json:"type"`
			Timestamp string `json:"timestamp"`
		}{string(TypePing), v.Timestamp.UTC().Format(time.RFC3339Nano)})

	case Pong:
		return json.Marshal(struct {
			Type      string `json:"type"`
			Timestamp string `json:"timestamp"`
		}{string(TypePong), v.Timestamp.UTC().Format(time.RFC3339Nano)})
	}

	return nil, fmt.Errorf("marshal frame: unsupported type %q", f.Type())
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
