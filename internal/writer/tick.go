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

	"github.com/openvortex/wire-data/internal/wire"
)

// TickWriter consumes TickRecord from the buffer and writes to the ticks table.
type TickWriter struct {
	cfg    Config
	runID  uuid.UUID
	logger *slog.Logger

	// Input from the feed listener
	input *Buffer[TickRecord]

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []tickRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics Metrics
}

// NewTickWriter creates a new TickWriter.
func NewTickWriter(
	cfg Config,
	runID uuid.UUID,
	input *Buffer[TickRecord],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *TickWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickWriter{
		cfg:    cfg,
		runID:  runID,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]tickRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming records and writing to the database.
func (w *TickWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("tick writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *TickWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping tick writer")

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
		w.logger.Info("tick writer stopped")
	case <-ctx.Done():
		w.logger.Warn("tick writer stop timed out")
	}

	// Final flush under the caller's context
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *TickWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *TickWriter) consumeLoop() {
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

// flushLoop periodically flushes the batch.
func (w *TickWriter) flushLoop() {
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

// handleRecord transforms and adds a record to the batch.
func (w *TickWriter) handleRecord(rec TickRecord) {
	row := w.transform(rec)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a TickRecord to a tickRow.
func (w *TickWriter) transform(rec TickRecord) tickRow {
	t := rec.Tick
	row := tickRow{
		RunID:          w.runID,
		ReceivedAt:     rec.ReceivedAt.UnixMicro(),
		Exchange:       t.Exchange,
		Token:          t.Token,
		Kind:           string(t.Kind),
		LastTradePrice: t.LastTradePrice,
	}

	if t.Kind == wire.KindOHLCV || t.Kind == wire.KindFull {
		row.LastTradeTime = int64(t.LastTradeTime)
		row.Open = t.Open
		row.High = t.High
		row.Low = t.Low
		row.Close = t.Close
		row.Volume = int64(t.Volume)
	}

	if t.Kind == wire.KindFull {
		row.AverageTradePrice = t.AverageTradePrice
		row.TotalBuyQuantity = t.TotalBuyQuantity
		row.TotalSellQuantity = t.TotalSellQuantity
		row.OpenInterest = int64(t.OpenInterest)
		row.Depth = marshalDepth(t.Depth)
	}

	return row
}

// marshalDepth renders depth levels as JSONB for the depth column.
func marshalDepth(d wire.Depth) []byte {
	data, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	return data
}

// flush writes the current batch to the database.
func (w *TickWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]tickRow, 0, w.cfg.BatchSize)
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

	w.logger.Debug("flushed ticks",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *TickWriter) batchInsert(ctx context.Context, rows []tickRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO ticks (run_id, received_at, exchange, token, kind, last_trade_price, last_trade_time, open, high, low, close, volume, average_trade_price, total_buy_quantity, total_sell_quantity, open_interest, depth)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (exchange, token, received_at) DO NOTHING
		`, r.RunID, r.ReceivedAt, r.Exchange, r.Token, r.Kind, r.LastTradePrice, r.LastTradeTime, r.Open, r.High, r.Low, r.Close, r.Volume, r.AverageTradePrice, r.TotalBuyQuantity, r.TotalSellQuantity, r.OpenInterest, r.Depth)
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
