package model

import (
	"errors"
	"strings"
	"time"
)

// ErrNoSymbols is returned when a symbol list normalizes to nothing.
var ErrNoSymbols = errors.New("at least one symbol is required")

// -----------------------------------------------------------------------------
// Credentials
// -----------------------------------------------------------------------------

// Credentials authenticate the streaming session. The secret only ever leaves
// the process inside the auth handshake payload.
type Credentials struct {
	Key    string
	Secret string
}

// String redacts the secret so credentials can't leak through %v.
func (c Credentials) String() string {
	return "Credentials{Key: " + c.Key + ", Secret: [redacted]}"
}

// IsZero reports whether neither field is set.
func (c Credentials) IsZero() bool {
	return c.Key == "" && c.Secret == ""
}

// -----------------------------------------------------------------------------
// Symbols
// -----------------------------------------------------------------------------

// SymbolSet is an ordered, duplicate-free list of upper-case symbols. It is
// fixed for the lifetime of a streaming session and shared by the trades and
// quotes channels.
type SymbolSet []string

// NewSymbolSet trims, upper-cases and de-duplicates symbols, keeping the first
// occurrence of each.
func NewSymbolSet(symbols ...string) (SymbolSet, error) {
	seen := make(map[string]struct{}, len(symbols))
	set := make(SymbolSet, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		set = append(set, s)
	}
	if len(set) == 0 {
		return nil, ErrNoSymbols
	}
	return set, nil
}

// Contains reports whether symbol is in the set.
func (s SymbolSet) Contains(symbol string) bool {
	for _, sym := range s {
		if sym == symbol {
			return true
		}
	}
	return false
}

// Strings returns a copy of the symbols as a plain slice.
func (s SymbolSet) Strings() []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// -----------------------------------------------------------------------------
// Quotes
// -----------------------------------------------------------------------------

// Quote is the latest bid/ask pair for one symbol.
type Quote struct {
	Bid float64
	Ask float64
}

// Mid returns the arithmetic mean of bid and ask.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// PriceUpdate is the normalized event handed to consumers. It is a value and
// is never mutated after emission.
type PriceUpdate struct {
	Symbol     string
	Bid        float64
	Ask        float64
	Price      float64 // (Bid+Ask)/2 at emission time
	ReceivedAt time.Time
}

// NewPriceUpdate builds the update for a quote received at t.
func NewPriceUpdate(symbol string, q Quote, t time.Time) PriceUpdate {
	return PriceUpdate{
		Symbol:     symbol,
		Bid:        q.Bid,
		Ask:        q.Ask,
		Price:      q.Mid(),
		ReceivedAt: t,
	}
}
