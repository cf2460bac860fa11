// Package model defines the value types shared by the streaming engine.
//
// Conventions:
//   - Symbols: upper-case instrument identifiers (e.g. "AAPL")
//   - Prices: float64 dollars as sent by the feed
//   - Timestamps: local receive time of the frame that produced the value
package model
