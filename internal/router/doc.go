// Package router decodes inbound stream frames and routes quote events.
//
// Each frame is a JSON array of events. Decode turns it into a closed set of
// typed events (QuoteEvent, TradeEvent, ErrorEvent, UnknownEvent). The
// Dispatcher applies complete quotes to the QuoteBook and pushes a
// model.PriceUpdate onto a bounded channel. When the channel is full the
// update is dropped and counted; the read loop never blocks on consumers.
package router
