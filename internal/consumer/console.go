package consumer

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// Console redraws one line per symbol in place:
//
//	[AAPL] $150.00 bid / $150.20 ask
//	[MSFT] waiting...
type Console struct {
	out     io.Writer
	symbols model.SymbolSet
	quotes  map[string]model.Quote
	lines   int // lines printed by the previous redraw
}

// NewConsole creates a console renderer writing to out.
func NewConsole(out io.Writer, symbols model.SymbolSet) *Console {
	return &Console{
		out:     out,
		symbols: symbols,
		quotes:  make(map[string]model.Quote, len(symbols)),
	}
}

// Name implements Consumer.
func (c *Console) Name() string { return "console" }

// Consume records the quote and redraws.
func (c *Console) Consume(_ context.Context, u model.PriceUpdate) error {
	c.quotes[u.Symbol] = model.Quote{Bid: u.Bid, Ask: u.Ask}
	return c.Redraw()
}

// Redraw rewrites the block, moving the cursor over the previous one.
func (c *Console) Redraw() error {
	w := bufio.NewWriter(c.out)
	if c.lines > 0 {
		fmt.Fprintf(w, "\x1b[%dA", c.lines)
	}
	for _, sym := range c.symbols {
		w.WriteString("\x1b[K")
		if q, ok := c.quotes[sym]; ok {
			fmt.Fprintf(w, "[%s] $%.2f bid / $%.2f ask\n", sym, q.Bid, q.Ask)
		} else {
			fmt.Fprintf(w, "[%s] waiting...\n", sym)
		}
	}
	c.lines = len(c.symbols)
	return w.Flush()
}
