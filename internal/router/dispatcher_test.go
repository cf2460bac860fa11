package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

func handle(d *Dispatcher, frame string) {
	d.HandleFrame(context.Background(), []byte(frame), time.Now())
}

func drain(ch <-chan model.PriceUpdate) []model.PriceUpdate {
	var out []model.PriceUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UpdateBuffer != 100 {
		t.Errorf("UpdateBuffer = %d, want 100", cfg.UpdateBuffer)
	}
}

func TestDispatcher_QuoteEmitsMidpoint(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), nil)

	handle(d, `[{"T":"q","S":"AAPL","bp":100.0,"ap":102.0}]`)

	updates := drain(d.Updates())
	require.Len(t, updates, 1)
	assert.Equal(t, "AAPL", updates[0].Symbol)
	assert.Equal(t, 101.0, updates[0].Price)

	q, ok := d.Quotes().Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, model.Quote{Bid: 100.0, Ask: 102.0}, q)
}

func TestDispatcher_IncompleteQuoteKeepsPriorState(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), nil)
	handle(d, `[{"T":"q","S":"AAPL","bp":100.0,"ap":102.0}]`)
	drain(d.Updates())

	handle(d, `[{"T":"q","S":"AAPL","bp":99.0}]`)

	assert.Empty(t, drain(d.Updates()))
	q, _ := d.Quotes().Get("AAPL")
	assert.Equal(t, model.Quote{Bid: 100.0, Ask: 102.0}, q)
	assert.Equal(t, int64(1), d.Stats().Incomplete)
}

func TestDispatcher_TradeIsNoop(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), nil)

	handle(d, `[{"T":"t","S":"AAPL","p":101.5,"s":100}]`)

	assert.Empty(t, drain(d.Updates()))
	assert.Equal(t, 0, d.Quotes().Len())
	assert.Equal(t, int64(1), d.Stats().Trades)
}

func TestDispatcher_IEXFrame(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), nil)

	handle(d, `[{"T":"t","i":96921,"S":"AAPL","x":"V","p":126.55,"s":100,"t":"2021-02-22T15:51:44.208Z","c":["@"],"z":"C"},`+
		`{"T":"q","S":"AAPL","bx":"V","bp":100.0,"bs":1,"ax":"V","ap":102.0,"as":3,"t":"2021-02-22T15:51:45.335689322Z","c":["R"],"z":"C"}]`)

	updates := drain(d.Updates())
	require.Len(t, updates, 1)
	assert.Equal(t, "AAPL", updates[0].Symbol)
	assert.Equal(t, 101.0, updates[0].Price)

	stats := d.Stats()
	assert.Equal(t, int64(0), stats.DecodeErrors)
	assert.Equal(t, int64(1), stats.Trades)
	assert.Equal(t, int64(1), stats.Quotes)
}

func TestDispatcher_ErrorSurfacesWarning(t *testing.T) {
	var warnings []ErrorEvent
	d := NewDispatcher(DefaultConfig(), nil, WithWarningHook(func(e ErrorEvent) {
		warnings = append(warnings, e)
	}))
	handle(d, `[{"T":"q","S":"AAPL","bp":100.0,"ap":102.0}]`)
	drain(d.Updates())

	handle(d, `[{"T":"error","code":429,"msg":"rate limited"},{"T":"q","S":"MSFT","bp":10,"ap":12}]`)

	require.Len(t, warnings, 1)
	assert.Equal(t, "rate limited", warnings[0].Message)

	q, _ := d.Quotes().Get("AAPL")
	assert.Equal(t, model.Quote{Bid: 100.0, Ask: 102.0}, q, "error leaves QuoteState unchanged")

	// Processing continues past the error within the same frame.
	updates := drain(d.Updates())
	require.Len(t, updates, 1)
	assert.Equal(t, "MSFT", updates[0].Symbol)
	assert.Equal(t, 11.0, updates[0].Price)
}

func TestDispatcher_UndecodableFrameDropped(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), nil)

	handle(d, `not json`)
	handle(d, `[{"T":"q","S":"AAPL","bp":1,"ap":3}]`)

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Frames)
	assert.Equal(t, int64(1), stats.DecodeErrors)
	assert.Len(t, drain(d.Updates()), 1)
}

func TestDispatcher_UnknownIgnored(t *testing.T) {
	d := NewDispatcher(DefaultConfig(), nil)

	handle(d, `[{"T":"success","msg":"authenticated"},{"T":"subscription","quotes":["AAPL"]}]`)

	assert.Empty(t, drain(d.Updates()))
	assert.Equal(t, int64(2), d.Stats().Unknown)
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	d := NewDispatcher(Config{UpdateBuffer: 2}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			handle(d, `[{"T":"q","S":"AAPL","bp":1,"ap":3}]`)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleFrame blocked on a full queue")
	}

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Emitted)
	assert.Equal(t, int64(3), stats.Dropped)
	assert.Len(t, drain(d.Updates()), 2)

	// QuoteState still reflects every quote.
	assert.Equal(t, int64(5), stats.Quotes)
}

func TestDispatcher_SharedBookAndClose(t *testing.T) {
	book := NewQuoteBook()
	d := NewDispatcher(DefaultConfig(), nil, WithQuoteBook(book))
	handle(d, `[{"T":"q","S":"MSFT","bp":10,"ap":20}]`)

	assert.Equal(t, []string{"MSFT"}, book.Symbols())
	assert.Equal(t, map[string]model.Quote{"MSFT": {Bid: 10, Ask: 20}}, book.Snapshot())

	d.Close()
	d.Close()
	u, ok := <-d.Updates()
	assert.True(t, ok, "buffered update still readable after Close")
	assert.Equal(t, 15.0, u.Price)
	_, ok = <-d.Updates()
	assert.False(t, ok)
}
