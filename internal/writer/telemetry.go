package writer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minerwatch/minerlink/internal/config"
	"github.com/minerwatch/minerlink/internal/model"
	"github.com/minerwatch/minerlink/internal/protocol"
)

// WriterMetrics counts writer activity since start.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// FlushRecorder receives per-table row counts after each successful flush.
type FlushRecorder interface {
	RowsFlushed(table string, n int64)
}

// telemetryRow is one miner snapshot flattened for the telemetry table.
type telemetryRow struct {
	ReceivedAt          int64
	MinerID             string
	Hostname            string
	HashrateGHS         float64
	ExpectedHashrateGHS float64
	SharesAccepted      int64
	SharesRejected      int64
	BestDifficulty      float64
	SessionDifficulty   float64
	PoolDifficulty      float64
	TemperatureC        float64
	VRTemperatureC      float64
	FanRPM              int
	PowerW              float64
	VoltageV            float64
	FrequencyMHz        int
	WifiRSSI            int
	UptimeSeconds       int64
}

// TelemetryWriter consumes miner updates from the router and writes one row
// per snapshot to the telemetry table.
type TelemetryWriter struct {
	cfg    config.WriterConfig
	logger *slog.Logger

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []telemetryRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics  WriterMetrics
	recorder FlushRecorder
}

// SetFlushRecorder attaches an external flush metrics hook. Must be called
// before Start.
func (w *TelemetryWriter) SetFlushRecorder(rec FlushRecorder) {
	w.recorder = rec
}

// NewTelemetryWriter creates a new TelemetryWriter.
func NewTelemetryWriter(cfg config.WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *TelemetryWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelemetryWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]telemetryRow, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (w *TelemetryWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("telemetry writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *TelemetryWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping telemetry writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("telemetry writer stopped")
	case <-ctx.Done():
		w.logger.Warn("telemetry writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *TelemetryWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// Consume implements router.Sink. Updates for other domains are ignored.
func (w *TelemetryWriter) Consume(upd protocol.DomainUpdate) {
	if upd.Domain != "miner" {
		return
	}

	var payload model.MinerUpdatePayload
	if err := json.Unmarshal(upd.Data, &payload); err != nil {
		w.logger.Error("malformed miner update payload", "error", err)
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	for _, m := range payload.Miners {
		w.batch = append(w.batch, w.transform(m, upd.ReceivedAt))
	}
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// flushLoop periodically flushes the batch.
func (w *TelemetryWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// transform converts a MinerSnapshot to a telemetryRow.
func (w *TelemetryWriter) transform(m model.MinerSnapshot, receivedAt time.Time) telemetryRow {
	return telemetryRow{
		ReceivedAt:          receivedAt.UnixMicro(),
		MinerID:             m.MinerID,
		Hostname:            m.Hostname,
		HashrateGHS:         m.HashrateGHS,
		ExpectedHashrateGHS: m.ExpectedHashrateGHS,
		SharesAccepted:      m.SharesAccepted,
		SharesRejected:      m.SharesRejected,
		BestDifficulty:      m.BestDifficulty,
		SessionDifficulty:   m.SessionDifficulty,
		PoolDifficulty:      m.PoolDifficulty,
		TemperatureC:        m.TemperatureC,
		VRTemperatureC:      m.VRTemperatureC,
		FanRPM:              m.FanRPM,
		PowerW:              m.PowerW,
		VoltageV:            m.VoltageV,
		FrequencyMHz:        m.FrequencyMHz,
		WifiRSSI:            m.WifiRSSI,
		UptimeSeconds:       m.UptimeSeconds,
	}
}

// flush writes the current batch to the database.
func (w *TelemetryWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]telemetryRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	if w.recorder != nil {
		w.recorder.RowsFlushed("telemetry", int64(len(batch)-conflicts))
	}

	w.logger.Debug("flushed telemetry",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *TelemetryWriter) batchInsert(rows []telemetryRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO telemetry (received_at, miner_id, hostname, hashrate_ghs, expected_hashrate_ghs, shares_accepted, shares_rejected, best_difficulty, session_difficulty, pool_difficulty, temperature_c, vr_temperature_c, fan_rpm, power_w, voltage_v, frequency_mhz, wifi_rssi, uptime_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (miner_id, received_at) DO NOTHING
		`, r.ReceivedAt, r.MinerID, r.Hostname, r.HashrateGHS, r.ExpectedHashrateGHS, r.SharesAccepted, r.SharesRejected, r.BestDifficulty, r.SessionDifficulty, r.PoolDifficulty, r.TemperatureC, r.VRTemperatureC, r.FanRPM, r.PowerW, r.VoltageV, r.FrequencyMHz, r.WifiRSSI, r.UptimeSeconds)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
