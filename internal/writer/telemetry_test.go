package writer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/minerwatch/minerlink/internal/config"
	"github.com/minerwatch/minerlink/internal/model"
	"github.com/minerwatch/minerlink/internal/protocol"
)

func testWriterConfig() config.WriterConfig {
	return config.WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}
}

func minerUpdate(t *testing.T, receivedAt time.Time, miners ...model.MinerSnapshot) protocol.DomainUpdate {
	t.Helper()
	data, err := json.Marshal(model.MinerUpdatePayload{Miners: miners})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return protocol.DomainUpdate{
		Domain:     "miner",
		Data:       data,
		ReceivedAt: receivedAt,
	}
}

func TestTelemetryWriter_Transform(t *testing.T) {
	w := NewTelemetryWriter(testWriterConfig(), nil, nil)

	receivedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m := model.MinerSnapshot{
		MinerID:             "bitaxe-01",
		Hostname:            "bitaxe-garage",
		HashrateGHS:         512.4,
		ExpectedHashrateGHS: 525.0,
		SharesAccepted:      4200,
		SharesRejected:      3,
		BestDifficulty:      1.2e9,
		SessionDifficulty:   3.4e6,
		PoolDifficulty:      8192,
		TemperatureC:        61.5,
		VRTemperatureC:      48.0,
		FanRPM:              4800,
		PowerW:              14.2,
		VoltageV:            5.02,
		FrequencyMHz:        490,
		WifiRSSI:            -58,
		UptimeSeconds:       86400,
	}

	row := w.transform(m, receivedAt)

	if row.MinerID != "bitaxe-01" {
		t.Errorf("MinerID = %s, want bitaxe-01", row.MinerID)
	}
	if row.ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", row.ReceivedAt, receivedAt.UnixMicro())
	}
	if row.HashrateGHS != 512.4 {
		t.Errorf("HashrateGHS = %v, want 512.4", row.HashrateGHS)
	}
	if row.SharesAccepted != 4200 {
		t.Errorf("SharesAccepted = %d, want 4200", row.SharesAccepted)
	}
	if row.BestDifficulty != 1.2e9 {
		t.Errorf("BestDifficulty = %v, want 1.2e9", row.BestDifficulty)
	}
	if row.FanRPM != 4800 {
		t.Errorf("FanRPM = %d, want 4800", row.FanRPM)
	}
	if row.WifiRSSI != -58 {
		t.Errorf("WifiRSSI = %d, want -58", row.WifiRSSI)
	}
	if row.UptimeSeconds != 86400 {
		t.Errorf("UptimeSeconds = %d, want 86400", row.UptimeSeconds)
	}
}

func TestTelemetryWriter_Consume_AddsRowPerMiner(t *testing.T) {
	w := NewTelemetryWriter(testWriterConfig(), nil, nil)

	upd := minerUpdate(t, time.Now(),
		model.MinerSnapshot{MinerID: "bitaxe-01"},
		model.MinerSnapshot{MinerID: "bitaxe-02"},
		model.MinerSnapshot{MinerID: "nerdqaxe-01"},
	)

	w.Consume(upd)

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 3 {
		t.Errorf("batch length = %d, want 3", batchLen)
	}
}

func TestTelemetryWriter_Consume_IgnoresOtherDomains(t *testing.T) {
	w := NewTelemetryWriter(testWriterConfig(), nil, nil)

	w.Consume(protocol.DomainUpdate{
		Domain:     "alert",
		Data:       json.RawMessage(`{"alerts":[]}`),
		ReceivedAt: time.Now(),
	})

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 0 {
		t.Errorf("batch length = %d, want 0", batchLen)
	}
}

func TestTelemetryWriter_Consume_MalformedPayload(t *testing.T) {
	w := NewTelemetryWriter(testWriterConfig(), nil, nil)

	w.Consume(protocol.DomainUpdate{
		Domain:     "miner",
		Data:       json.RawMessage(`{"miners": "not an array"}`),
		ReceivedAt: time.Now(),
	})

	stats := w.Stats()
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 0 {
		t.Errorf("batch length = %d, want 0", batchLen)
	}
}

func TestTelemetryWriter_Lifecycle(t *testing.T) {
	cfg := config.WriterConfig{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}
	w := NewTelemetryWriter(cfg, nil, nil)

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

func TestTelemetryWriter_Stats(t *testing.T) {
	w := NewTelemetryWriter(testWriterConfig(), nil, nil)

	stats := w.Stats()

	if stats.Inserts != 0 {
		t.Errorf("initial Inserts = %d, want 0", stats.Inserts)
	}
	if stats.Errors != 0 {
		t.Errorf("initial Errors = %d, want 0", stats.Errors)
	}
	if stats.Flushes != 0 {
		t.Errorf("initial Flushes = %d, want 0", stats.Flushes)
	}
}
