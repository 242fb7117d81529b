package writer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/minerwatch/minerlink/internal/config"
	"github.com/minerwatch/minerlink/internal/model"
	"github.com/minerwatch/minerlink/internal/protocol"
)

func alertUpdate(t *testing.T, receivedAt time.Time, alerts ...model.Alert) protocol.DomainUpdate {
	t.Helper()
	data, err := json.Marshal(model.AlertUpdatePayload{Alerts: alerts})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return protocol.DomainUpdate{
		Domain:     "alert",
		Data:       data,
		ReceivedAt: receivedAt,
	}
}

func TestAlertWriter_Transform(t *testing.T) {
	w := NewAlertWriter(testWriterConfig(), nil, nil)

	receivedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	raisedAt := receivedAt.Add(-2 * time.Minute)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	a := model.Alert{
		ID:       id,
		MinerID:  "bitaxe-01",
		Severity: model.SeverityCritical,
		Code:     "temp_high",
		Message:  "ASIC temperature above 70C",
		RaisedAt: raisedAt,
		Resolved: false,
	}

	row := w.transform(a, receivedAt)

	if row.ID != id {
		t.Errorf("ID = %s, want %s", row.ID, id)
	}
	if row.ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", row.ReceivedAt, receivedAt.UnixMicro())
	}
	if row.MinerID != "bitaxe-01" {
		t.Errorf("MinerID = %s, want bitaxe-01", row.MinerID)
	}
	if row.Severity != model.SeverityCritical {
		t.Errorf("Severity = %s, want %s", row.Severity, model.SeverityCritical)
	}
	if row.Code != "temp_high" {
		t.Errorf("Code = %s, want temp_high", row.Code)
	}
	if !row.RaisedAt.Equal(raisedAt) {
		t.Errorf("RaisedAt = %v, want %v", row.RaisedAt, raisedAt)
	}
	if row.Resolved {
		t.Error("Resolved = true, want false")
	}
}

func TestAlertWriter_Consume_AddsRowPerAlert(t *testing.T) {
	w := NewAlertWriter(testWriterConfig(), nil, nil)

	upd := alertUpdate(t, time.Now(),
		model.Alert{ID: uuid.New(), Code: "miner_offline"},
		model.Alert{ID: uuid.New(), Code: "hashrate_low"},
	)

	w.Consume(upd)

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 2 {
		t.Errorf("batch length = %d, want 2", batchLen)
	}
}

func TestAlertWriter_Consume_IgnoresOtherDomains(t *testing.T) {
	w := NewAlertWriter(testWriterConfig(), nil, nil)

	w.Consume(protocol.DomainUpdate{
		Domain:     "miner",
		Data:       json.RawMessage(`{"miners":[]}`),
		ReceivedAt: time.Now(),
	})

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 0 {
		t.Errorf("batch length = %d, want 0", batchLen)
	}
}

func TestAlertWriter_Consume_MalformedPayload(t *testing.T) {
	w := NewAlertWriter(testWriterConfig(), nil, nil)

	w.Consume(protocol.DomainUpdate{
		Domain:     "alert",
		Data:       json.RawMessage(`[not json`),
		ReceivedAt: time.Now(),
	})

	stats := w.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}

func TestAlertWriter_Lifecycle(t *testing.T) {
	cfg := config.WriterConfig{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}
	w := NewAlertWriter(cfg, nil, nil)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
