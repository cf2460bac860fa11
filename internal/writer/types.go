package writer

import (
	"time"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// WriterConfig holds batching parameters for TimescaleWriter.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: time.Second,
	}
}

// WriterMetrics tracks sink activity.
type WriterMetrics struct {
	Inserts int64
	Flushes int64
	Errors  int64
}

// quoteRow is one row of quote_prices.
type quoteRow struct {
	Time   time.Time
	Symbol string
	Bid    float64
	Ask    float64
	Mid    float64
}

func toRow(u model.PriceUpdate) quoteRow {
	return quoteRow{
		Time:   u.ReceivedAt.UTC(),
		Symbol: u.Symbol,
		Bid:    u.Bid,
		Ask:    u.Ask,
		Mid:    u.Price,
	}
}
