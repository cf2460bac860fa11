package router

import "github.com/jsphbtst/personal-alpaca-cli/internal/model"

// Type tags on the wire.
const (
	TagQuote = "q"
	TagTrade = "t"
	TagError = "error"
)

// Config holds configuration for the Dispatcher.
type Config struct {
	UpdateBuffer int // Capacity of the PriceUpdate channel. Default: 100
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{UpdateBuffer: 100}
}

// Stats contains runtime statistics.
type Stats struct {
	Frames       int64
	DecodeErrors int64
	Quotes       int64
	Incomplete   int64 // quotes missing symbol, bid or ask
	Trades       int64
	Errors       int64
	Unknown      int64
	Emitted      int64
	Dropped      int64
}

// Event is one decoded stream event. The set of implementations is closed.
type Event interface {
	isEvent()
}

// QuoteEvent carries a bid/ask pair. Complete is false when the symbol, bid
// or ask was absent on the wire.
type QuoteEvent struct {
	Symbol   string
	Bid      float64
	Ask      float64
	Complete bool
}

// TradeEvent is a trade print. Only the symbol is kept.
type TradeEvent struct {
	Symbol string
}

// ErrorEvent is an error object pushed by the feed.
type ErrorEvent struct {
	Code    int
	Message string
}

// UnknownEvent is any other type tag (success, subscription, ...).
type UnknownEvent struct {
	Tag string
}

func (QuoteEvent) isEvent()   {}
func (TradeEvent) isEvent()   {}
func (ErrorEvent) isEvent()   {}
func (UnknownEvent) isEvent() {}

// Quote returns the bid/ask pair.
func (q QuoteEvent) Quote() model.Quote {
	return model.Quote{Bid: q.Bid, Ask: q.Ask}
}
