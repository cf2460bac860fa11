package router

import (
	"encoding/json"
	"fmt"
)

// wireEvent is one array element keyed by its exact field names. encoding/json
// matches struct tags case-insensitively, and the feed sends both "T" (type)
// and "t" (timestamp), "S" (symbol) and "s" (size), so fields are looked up
// by exact key instead.
type wireEvent map[string]json.RawMessage

// Decode parses one frame into events. A frame that is not a JSON array of
// objects returns an error and no events. A malformed optional field is
// treated as absent and never fails the frame.
func Decode(data []byte) ([]Event, error) {
	var raw []wireEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, w := range raw {
		events = append(events, w.event())
	}
	return events, nil
}

func (w wireEvent) str(key string) (string, bool) {
	v, ok := w[key]
	if !ok || string(v) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func (w wireEvent) float(key string) (float64, bool) {
	v, ok := w[key]
	if !ok || string(v) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, false
	}
	return f, true
}

func (w wireEvent) event() Event {
	tag, _ := w.str("T")
	switch tag {
	case TagQuote:
		q := QuoteEvent{}
		symbol, hasSymbol := w.str("S")
		bid, hasBid := w.float("bp")
		ask, hasAsk := w.float("ap")
		q.Symbol, q.Bid, q.Ask = symbol, bid, ask
		q.Complete = hasSymbol && symbol != "" && hasBid && hasAsk
		return q
	case TagTrade:
		symbol, _ := w.str("S")
		return TradeEvent{Symbol: symbol}
	case TagError:
		e := ErrorEvent{}
		e.Message, _ = w.str("msg")
		if code, ok := w.float("code"); ok && code == float64(int(code)) {
			e.Code = int(code)
		}
		return e
	default:
		return UnknownEvent{Tag: tag}
	}
}
