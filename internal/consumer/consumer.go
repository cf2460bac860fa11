package consumer

import (
	"context"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jsphbtst/personal-alpaca-cli/internal/metrics"
	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// Consumer accepts price updates. Consume is called from a single goroutine.
type Consumer interface {
	Consume(ctx context.Context, u model.PriceUpdate) error
	Name() string
}

// FanOut delivers updates to a fixed set of consumers.
type FanOut struct {
	consumers []Consumer
	logger    *zap.Logger

	delivered atomic.Int64
	failures  atomic.Int64
}

// NewFanOut creates a FanOut over consumers.
func NewFanOut(logger *zap.Logger, consumers ...Consumer) *FanOut {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOut{consumers: consumers, logger: logger.Named("fanout")}
}

// Run delivers updates until the channel is closed or ctx is done. Consumers
// implementing io.Closer are closed before Run returns.
func (f *FanOut) Run(ctx context.Context, updates <-chan model.PriceUpdate) error {
	defer f.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				f.logger.Debug("update channel closed")
				return nil
			}
			f.deliver(ctx, u)
		}
	}
}

func (f *FanOut) deliver(ctx context.Context, u model.PriceUpdate) {
	for _, c := range f.consumers {
		if err := c.Consume(ctx, u); err != nil {
			f.failures.Add(1)
			metrics.ConsumerErrors.WithLabelValues(c.Name()).Inc()
			f.logger.Warn("consumer failed",
				zap.String("consumer", c.Name()),
				zap.String("symbol", u.Symbol),
				zap.Error(err),
			)
		}
	}
	f.delivered.Add(1)
}

func (f *FanOut) closeAll() {
	for _, c := range f.consumers {
		closer, ok := c.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			f.logger.Warn("consumer close failed", zap.String("consumer", c.Name()), zap.Error(err))
		}
	}
}

// Delivered returns the number of updates handed to the consumers.
func (f *FanOut) Delivered() int64 { return f.delivered.Load() }

// Failures returns the number of consumer errors.
func (f *FanOut) Failures() int64 { return f.failures.Load() }
