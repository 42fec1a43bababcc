package writer

import (
	"time"

	"github.com/google/uuid"

	"github.com/openvortex/wire-data/internal/wire"
)

// Config contains configuration for batch writers.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
	}
}

// TickRecord pairs a decoded tick with the time it arrived.
type TickRecord struct {
	Tick       wire.Tick
	ReceivedAt time.Time
}

// OrderRecord pairs an order update with the time it arrived.
type OrderRecord struct {
	Update     wire.OrderUpdate
	ReceivedAt time.Time
}

// tickRow represents a row for the ticks table. Depth is JSONB and
// empty for ltp and ohlcv ticks.
type tickRow struct {
	RunID             uuid.UUID
	ReceivedAt        int64 // Microseconds
	Exchange          string
	Token             int32
	Kind              string
	LastTradePrice    float64
	LastTradeTime     int64 // Seconds, 0 for ltp ticks
	Open              float64
	High              float64
	Low               float64
	Close             float64
	Volume            int64
	AverageTradePrice float64
	TotalBuyQuantity  int64
	TotalSellQuantity int64
	OpenInterest      int64
	Depth             []byte
}

// orderUpdateRow represents a row for the order_updates table.
type orderUpdateRow struct {
	RunID      uuid.UUID
	ReceivedAt int64 // Microseconds
	EventType  string
	Payload    []byte // JSONB
}

// Metrics holds counters for a writer.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
