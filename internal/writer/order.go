package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderUpdateWriter consumes OrderRecord from the buffer and writes to
// the order_updates table.
type OrderUpdateWriter struct {
	cfg    Config
	runID  uuid.UUID
	logger *slog.Logger

	input *Buffer[OrderRecord]
	db    *pgxpool.Pool

	batch       []orderUpdateRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewOrderUpdateWriter creates a new OrderUpdateWriter.
func NewOrderUpdateWriter(
	cfg Config,
	runID uuid.UUID,
	input *Buffer[OrderRecord],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *OrderUpdateWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderUpdateWriter{
		cfg:    cfg,
		runID:  runID,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]orderUpdateRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming records and writing to the database.
func (w *OrderUpdateWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("order update writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *OrderUpdateWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping order update writer")

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
		w.logger.Info("order update writer stopped")
	case <-ctx.Done():
		w.logger.Warn("order update writer stop timed out")
	}

	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *OrderUpdateWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *OrderUpdateWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			rec, ok := w.input.TryPop()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleRecord(rec)
		}
	}
}

func (w *OrderUpdateWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *OrderUpdateWriter) handleRecord(rec OrderRecord) {
	row := w.transform(rec)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts an OrderRecord to an orderUpdateRow.
func (w *OrderUpdateWriter) transform(rec OrderRecord) orderUpdateRow {
	return orderUpdateRow{
		RunID:      w.runID,
		ReceivedAt: rec.ReceivedAt.UnixMicro(),
		EventType:  rec.Update.Type,
		Payload:    []byte(rec.Update.Data),
	}
}

func (w *OrderUpdateWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]orderUpdateRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
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

	w.logger.Debug("flushed order updates",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (w *OrderUpdateWriter) batchInsert(ctx context.Context, rows []orderUpdateRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO order_updates (run_id, received_at, event_type, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (run_id, received_at, event_type) DO NOTHING
		`, r.RunID, r.ReceivedAt, r.EventType, r.Payload)
	}

	results := w.db.SendBatch(ctx, batch)
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
