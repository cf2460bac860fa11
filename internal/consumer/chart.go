package consumer

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/gammazero/deque"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// DefaultHistory is the number of midpoints kept per symbol.
const DefaultHistory = 100

// Point is one plotted sample: x is the sample index, y the price.
type Point struct {
	X float64
	Y float64
}

// Chart keeps a bounded midpoint history per symbol for plotting. Updates for
// symbols outside the set are ignored.
type Chart struct {
	mu      sync.RWMutex
	symbols model.SymbolSet
	size    int
	history map[string]*deque.Deque[float64]
	yMin    float64
	yMax    float64

	out io.Writer // optional legend output
}

// NewChart creates a chart holding size points per symbol (DefaultHistory if
// size < 1). out may be nil.
func NewChart(symbols model.SymbolSet, size int, out io.Writer) *Chart {
	if size < 1 {
		size = DefaultHistory
	}
	c := &Chart{
		symbols: symbols,
		size:    size,
		history: make(map[string]*deque.Deque[float64], len(symbols)),
		yMin:    0,
		yMax:    100,
		out:     out,
	}
	for _, sym := range symbols {
		c.history[sym] = &deque.Deque[float64]{}
	}
	return c
}

// Name implements Consumer.
func (c *Chart) Name() string { return "chart" }

// Consume appends the midpoint and recomputes the bounds.
func (c *Chart) Consume(_ context.Context, u model.PriceUpdate) error {
	c.mu.Lock()
	h, ok := c.history[u.Symbol]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	h.PushBack(u.Price)
	for h.Len() > c.size {
		h.PopFront()
	}
	c.recalculateBounds()
	c.mu.Unlock()

	if c.out == nil {
		return nil
	}
	_, err := fmt.Fprintf(c.out, "\r\x1b[K%s", c.Legend())
	return err
}

// recalculateBounds pads the price range by 5% and widens ranges under 0.01
// by 1 on each side. With no data the range is 0..100.
func (c *Chart) recalculateBounds() {
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, h := range c.history {
		for i := 0; i < h.Len(); i++ {
			p := h.At(i)
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
	}

	if lo == math.MaxFloat64 {
		c.yMin, c.yMax = 0, 100
		return
	}

	pad := (hi - lo) * 0.05
	lo, hi = lo-pad, hi+pad
	if math.Abs(hi-lo) < 0.01 {
		lo, hi = lo-1, hi+1
	}
	c.yMin, c.yMax = lo, hi
}

// Bounds returns the current y-axis range.
func (c *Chart) Bounds() (lo, hi float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.yMin, c.yMax
}

// Points returns the plotted samples for symbol, oldest first.
func (c *Chart) Points(symbol string) []Point {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, ok := c.history[symbol]
	if !ok {
		return nil
	}
	pts := make([]Point, h.Len())
	for i := range pts {
		pts[i] = Point{X: float64(i), Y: h.At(i)}
	}
	return pts
}

// Latest returns the most recent price for symbol.
func (c *Chart) Latest(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, ok := c.history[symbol]
	if !ok || h.Len() == 0 {
		return 0, false
	}
	return h.Back(), true
}

// Legend renders "SYM: $price" for each symbol, "---" when no price yet.
func (c *Chart) Legend() string {
	parts := make([]string, 0, len(c.symbols))
	for _, sym := range c.symbols {
		price := "---"
		if p, ok := c.Latest(sym); ok {
			price = fmt.Sprintf("$%.2f", p)
		}
		parts = append(parts, fmt.Sprintf("■ %s: %s", sym, price))
	}
	return strings.Join(parts, "  ")
}
