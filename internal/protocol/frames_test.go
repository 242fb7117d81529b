package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParse_ConnectionEstablished(t *testing.T) {
	frame, err := Parse([]byte(`{"type":"connection_established","client_id":"c-42"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	est, ok := frame.(ConnectionEstablished)
	if !ok {
		t.Fatalf("frame = %T, want ConnectionEstablished", frame)
	}
	if est.ClientID != "c-42" {
		t.Errorf("ClientID = %q, want %q", est.ClientID, "c-42")
	}
}

func TestParse_DomainUpdate(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		domain string
	}{
		{"miner", `{"type":"miner_update","data":{"miners":[]}}`, "miner"},
		{"alert", `{"type":"alert_update","data":{"alerts":[]}}`, "alert"},
		{"system", `{"type":"system_update","data":{}}`, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			upd, ok := frame.(DomainUpdate)
			if !ok {
				t.Fatalf("frame = %T, want DomainUpdate", frame)
			}
			if upd.Domain != tt.domain {
				t.Errorf("Domain = %q, want %q", upd.Domain, tt.domain)
			}
			if len(upd.Data) == 0 {
				t.Error("Data is empty, want payload")
			}
		})
	}
}

func TestParse_ServerErrors(t *testing.T) {
	for _, typ := range []FrameType{TypeError, TypeValidationError, TypeProcessingError} {
		raw := `{"type":"` + string(typ) + `","data":{"message":"bad"}}`
		frame, err := Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse(%s) failed: %v", typ, err)
		}
		se, ok := frame.(ServerError)
		if !ok {
			t.Fatalf("frame = %T, want ServerError", frame)
		}
		if se.Kind != typ {
			t.Errorf("Kind = %q, want %q", se.Kind, typ)
		}
	}
}

func TestParse_UnknownType(t *testing.T) {
	frame, err := Parse([]byte(`{"type":"unknown_future_type","data":{}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	unk, ok := frame.(Unknown)
	if !ok {
		t.Fatalf("frame = %T, want Unknown", frame)
	}
	if unk.RawType != "unknown_future_type" {
		t.Errorf("RawType = %q, want %q", unk.RawType, "unknown_future_type")
	}
}

func TestParse_BareUpdateSuffixIsUnknown(t *testing.T) {
	frame, err := Parse([]byte(`{"type":"_update"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := frame.(Unknown); !ok {
		t.Errorf("frame = %T, want Unknown for empty domain", frame)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{"type":`},
		{"missing type", `{"data":{}}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.raw)); err == nil {
				t.Error("Parse succeeded, want error")
			}
		})
	}
}

func TestParse_PingTimestamp(t *testing.T) {
	frame, err := Parse([]byte(`{"type":"ping","timestamp":"2025-03-01T12:00:00Z"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ping, ok := frame.(Ping)
	if !ok {
		t.Fatalf("frame = %T, want Ping", frame)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if !ping.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ping.Timestamp, want)
	}
}

func TestParse_PingWithoutTimestamp(t *testing.T) {
	frame, err := Parse([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ping := frame.(Ping)
	if !ping.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", ping.Timestamp)
	}
}

func TestMarshal_Subscribe(t *testing.T) {
	data, err := Marshal(Subscribe{Topics: []string{"miners", "alerts"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got struct {
		Type   string   `json:"type"`
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "subscribe" {
		t.Errorf("type = %q, want %q", got.Type, "subscribe")
	}
	if len(got.Topics) != 2 || got.Topics[0] != "miners" || got.Topics[1] != "alerts" {
		t.Errorf("topics = %v, want [miners alerts]", got.Topics)
	}
}

func TestMarshal_SubscribeEmptySetHasTopicsField(t *testing.T) {
	data, err := Marshal(Subscribe{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"topics":[]`) {
		t.Errorf("payload = %s, want explicit empty topics list", data)
	}
}

func TestMarshal_PingRoundTrip(t *testing.T) {
	sent := time.Date(2025, 3, 1, 12, 0, 0, 500000000, time.UTC)
	data, err := Marshal(Ping{Timestamp: sent})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	frame, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ping, ok := frame.(Ping)
	if !ok {
		t.Fatalf("frame = %T, want Ping", frame)
	}
	if !ping.Timestamp.Equal(sent) {
		t.Errorf("Timestamp = %v, want %v", ping.Timestamp, sent)
	}
}

func TestMarshal_InboundOnlyFrameRejected(t *testing.T) {
	if _, err := Marshal(ConnectionEstablished{ClientID: "x"}); err == nil {
		t.Error("Marshal succeeded for inbound-only frame, want error")
	}
}
