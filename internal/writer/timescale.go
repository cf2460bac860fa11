package writer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

const insertQuote = `
	INSERT INTO quote_prices (time, symbol, bid, ask, mid)
	VALUES ($1, $2, $3, $4, $5)
`

// closeTimeout bounds the final flush on Close.
const closeTimeout = 5 * time.Second

// BatchSender is the subset of *pgxpool.Pool used by TimescaleWriter.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TimescaleWriter batches price updates into quote_prices.
type TimescaleWriter struct {
	cfg    WriterConfig
	logger *zap.Logger
	db     BatchSender

	// Batching
	batch   []quoteRow
	batchMu sync.Mutex

	// Lifecycle
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewTimescaleWriter creates a TimescaleWriter. Call Start to enable
// interval flushing.
func NewTimescaleWriter(cfg WriterConfig, db BatchSender, logger *zap.Logger) *TimescaleWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	return &TimescaleWriter{
		cfg:    cfg,
		db:     db,
		logger: logger.Named("timescale"),
		batch:  make([]quoteRow, 0, cfg.BatchSize),
	}
}

// Name implements consumer.Consumer.
func (w *TimescaleWriter) Name() string { return "timescale" }

// Start launches the interval flush loop.
func (w *TimescaleWriter) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop(ctx)

	w.logger.Info("timescale writer started",
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Duration("flush_interval", w.cfg.FlushInterval),
	)
}

// Consume adds u to the current batch and flushes when the batch is full.
func (w *TimescaleWriter) Consume(ctx context.Context, u model.PriceUpdate) error {
	w.batchMu.Lock()
	w.batch = append(w.batch, toRow(u))
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		return w.flush(ctx)
	}
	return nil
}

// Close stops the flush loop and writes whatever is still batched.
func (w *TimescaleWriter) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := w.flush(ctx)

	w.logger.Info("timescale writer stopped")
	return err
}

// Pending returns the number of rows waiting for the next flush.
func (w *TimescaleWriter) Pending() int {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return len(w.batch)
}

// Stats returns current metrics.
func (w *TimescaleWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *TimescaleWriter) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.flush(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("interval flush failed", zap.Error(err))
			}
		}
	}
}

// flush writes the current batch. A failed batch is dropped and counted.
func (w *TimescaleWriter) flush(ctx context.Context) error {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return nil
	}

	// Take ownership of current batch
	rows := w.batch
	w.batch = make([]quoteRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	err := w.batchInsert(ctx, rows)

	w.batchMu.Lock()
	if err != nil {
		w.metrics.Errors++
	} else {
		w.metrics.Inserts += int64(len(rows))
		w.metrics.Flushes++
	}
	w.batchMu.Unlock()

	if err != nil {
		w.logger.Error("batch insert failed", zap.Error(err), zap.Int("count", len(rows)))
		return fmt.Errorf("insert %d quotes: %w", len(rows), err)
	}

	w.logger.Debug("flushed quotes",
		zap.Int("count", len(rows)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (w *TimescaleWriter) batchInsert(ctx context.Context, rows []quoteRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertQuote, r.Time, r.Symbol, r.Bid, r.Ask, r.Mid)
	}

	results := w.db.SendBatch(ctx, batch)
	for range rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}
