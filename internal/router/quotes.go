package router

import (
	"sort"
	"sync"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// QuoteBook holds the latest quote per symbol. Entries are overwritten in
// place and survive reconnects.
type QuoteBook struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
}

// NewQuoteBook creates an empty book.
func NewQuoteBook() *QuoteBook {
	return &QuoteBook{quotes: make(map[string]model.Quote)}
}

// Set stores q as the latest quote for symbol.
func (b *QuoteBook) Set(symbol string, q model.Quote) {
	b.mu.Lock()
	b.quotes[symbol] = q
	b.mu.Unlock()
}

// Get returns the latest quote for symbol.
func (b *QuoteBook) Get(symbol string) (model.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[symbol]
	return q, ok
}

// Len returns the number of symbols with a quote.
func (b *QuoteBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.quotes)
}

// Snapshot returns a copy of the book.
func (b *QuoteBook) Snapshot() map[string]model.Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]model.Quote, len(b.quotes))
	for k, v := range b.quotes {
		out[k] = v
	}
	return out
}

// Symbols returns the known symbols in sorted order.
func (b *QuoteBook) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.quotes))
	for k := range b.quotes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
