package router

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jsphbtst/personal-alpaca-cli/internal/metrics"
	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWarningHook registers fn to receive error events from the feed.
func WithWarningHook(fn func(ErrorEvent)) Option {
	return func(d *Dispatcher) {
		d.onWarning = fn
	}
}

// WithQuoteBook shares an existing book instead of creating one.
func WithQuoteBook(b *QuoteBook) Option {
	return func(d *Dispatcher) {
		d.book = b
	}
}

// Dispatcher turns frames into QuoteBook updates and PriceUpdates.
// HandleFrame must be called from a single goroutine.
type Dispatcher struct {
	cfg       Config
	logger    *zap.Logger
	book      *QuoteBook
	updates   chan model.PriceUpdate
	onWarning func(ErrorEvent)

	closeOnce sync.Once

	// Stats
	frames       atomic.Int64
	decodeErrors atomic.Int64
	quotes       atomic.Int64
	incomplete   atomic.Int64
	trades       atomic.Int64
	errors       atomic.Int64
	unknown      atomic.Int64
	emitted      atomic.Int64
	dropped      atomic.Int64
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UpdateBuffer < 1 {
		cfg.UpdateBuffer = DefaultConfig().UpdateBuffer
	}

	d := &Dispatcher{
		cfg:     cfg,
		logger:  logger.Named("dispatcher"),
		updates: make(chan model.PriceUpdate, cfg.UpdateBuffer),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.book == nil {
		d.book = NewQuoteBook()
	}
	return d
}

// Updates returns the PriceUpdate channel. It is closed by Close.
func (d *Dispatcher) Updates() <-chan model.PriceUpdate {
	return d.updates
}

// Quotes returns the QuoteBook.
func (d *Dispatcher) Quotes() *QuoteBook {
	return d.book
}

// Close closes the Updates channel. HandleFrame must not be called afterwards.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.updates) })
}

// HandleFrame decodes one frame and routes each event in order.
func (d *Dispatcher) HandleFrame(_ context.Context, data []byte, receivedAt time.Time) {
	d.frames.Add(1)

	events, err := Decode(data)
	if err != nil {
		d.decodeErrors.Add(1)
		metrics.DecodeErrors.Inc()
		d.logger.Warn("dropping undecodable frame", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}

	for _, ev := range events {
		d.route(ev, receivedAt)
	}
}

func (d *Dispatcher) route(ev Event, receivedAt time.Time) {
	switch e := ev.(type) {
	case QuoteEvent:
		metrics.Events.WithLabelValues(TagQuote).Inc()
		if !e.Complete {
			d.incomplete.Add(1)
			d.logger.Debug("discarding incomplete quote", zap.String("symbol", e.Symbol))
			return
		}
		d.quotes.Add(1)
		q := e.Quote()
		d.book.Set(e.Symbol, q)
		d.emit(model.NewPriceUpdate(e.Symbol, q, receivedAt))

	case TradeEvent:
		metrics.Events.WithLabelValues(TagTrade).Inc()
		d.trades.Add(1)

	case ErrorEvent:
		metrics.Events.WithLabelValues(TagError).Inc()
		d.errors.Add(1)
		d.logger.Warn("feed error", zap.String("msg", e.Message), zap.Int("code", e.Code))
		if d.onWarning != nil {
			d.onWarning(e)
		}

	case UnknownEvent:
		metrics.Events.WithLabelValues("other").Inc()
		d.unknown.Add(1)
		d.logger.Debug("ignoring event", zap.String("type", e.Tag))
	}
}

// emit sends u without blocking. A full channel drops the update.
func (d *Dispatcher) emit(u model.PriceUpdate) {
	select {
	case d.updates <- u:
		d.emitted.Add(1)
	default:
		d.dropped.Add(1)
		metrics.UpdatesDropped.Inc()
		d.logger.Warn("update buffer full, dropping price update",
			zap.String("symbol", u.Symbol),
			zap.Int("capacity", cap(d.updates)),
		)
	}
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Frames:       d.frames.Load(),
		DecodeErrors: d.decodeErrors.Load(),
		Quotes:       d.quotes.Load(),
		Incomplete:   d.incomplete.Load(),
		Trades:       d.trades.Load(),
		Errors:       d.errors.Load(),
		Unknown:      d.unknown.Load(),
		Emitted:      d.emitted.Load(),
		Dropped:      d.dropped.Load(),
	}
}
