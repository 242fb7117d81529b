package writer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minerwatch/minerlink/internal/config"
	"github.com/minerwatch/minerlink/internal/model"
	"github.com/minerwatch/minerlink/internal/protocol"
)

// alertRow is one raised alert flattened for the alerts table.
type alertRow struct {
	ID         uuid.UUID
	ReceivedAt int64
	MinerID    string
	Severity   string
	Code       string
	Message    string
	RaisedAt   time.Time
	Resolved   bool
}

// AlertWriter consumes alert updates from the router and writes one row per
// alert to the alerts table. The alert ID is the primary key, so re-sent
// alert sets only insert alerts not seen before.
type AlertWriter struct {
	cfg    config.WriterConfig
	logger *slog.Logger

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []alertRow
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
func (w *AlertWriter) SetFlushRecorder(rec FlushRecorder) {
	w.recorder = rec
}

// NewAlertWriter creates a new AlertWriter.
func NewAlertWriter(cfg config.WriterConfig, db *pgxpool.Pool, logger *slog.Logger) *AlertWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]alertRow, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (w *AlertWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("alert writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *AlertWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping alert writer")

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
		w.logger.Info("alert writer stopped")
	case <-ctx.Done():
		w.logger.Warn("alert writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *AlertWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// Consume implements router.Sink. Updates for other domains are ignored.
func (w *AlertWriter) Consume(upd protocol.DomainUpdate) {
	if upd.Domain != "alert" {
		return
	}

	var payload model.AlertUpdatePayload
	if err := json.Unmarshal(upd.Data, &payload); err != nil {
		w.logger.Error("malformed alert update payload", "error", err)
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	for _, a := range payload.Alerts {
		w.batch = append(w.batch, w.transform(a, upd.ReceivedAt))
	}
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// flushLoop periodically flushes the batch.
func (w *AlertWriter) flushLoop() {
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

// transform converts an Alert to an alertRow.
func (w *AlertWriter) transform(a model.Alert, receivedAt time.Time) alertRow {
	return alertRow{
		ID:         a.ID,
		ReceivedAt: receivedAt.UnixMicro(),
		MinerID:    a.MinerID,
		Severity:   a.Severity,
		Code:       a.Code,
		Message:    a.Message,
		RaisedAt:   a.RaisedAt,
		Resolved:   a.Resolved,
	}
}

// flush writes the current batch to the database.
func (w *AlertWriter) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]alertRow, 0, w.cfg.BatchSize)
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
		w.recorder.RowsFlushed("alerts", int64(len(batch)-conflicts))
	}

	w.logger.Debug("flushed alerts",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *AlertWriter) batchInsert(rows []alertRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO alerts (id, received_at, miner_id, severity, code, message, raised_at, resolved)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.ReceivedAt, r.MinerID, r.Severity, r.Code, r.Message, r.RaisedAt, r.Resolved)
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
