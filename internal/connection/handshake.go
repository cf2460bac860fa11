package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// authRequest is the outbound auth message.
type authRequest struct {
	Action string `json:"action"` // always "auth"
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// subscribeRequest is the outbound subscription message.
type subscribeRequest struct {
	Action string   `json:"action"` // always "subscribe"
	Trades []string `json:"trades"`
	Quotes []string `json:"quotes"`
}

// Authenticate sends the auth message and waits for exactly one reply.
//
// The reply is returned as-is; its content is not interpreted. Any send or
// receive failure is returned unchanged and never retried here.
func Authenticate(ctx context.Context, t Transport, creds model.Credentials, timeout time.Duration) ([]byte, error) {
	payload, err := json.Marshal(authRequest{Action: "auth", Key: creds.Key, Secret: creds.Secret})
	if err != nil {
		return nil, fmt.Errorf("marshal auth: %w", err)
	}
	if err := t.Send(payload); err != nil {
		return nil, fmt.Errorf("send auth: %w", err)
	}

	reply, err := receiveWithin(ctx, t, timeout)
	if err != nil {
		return nil, fmt.Errorf("auth reply: %w", err)
	}
	return reply.Data, nil
}

// Subscribe sends one subscription for symbols on both the trades and quotes
// channels. No acknowledgement is awaited.
func Subscribe(t Transport, symbols model.SymbolSet) error {
	payload, err := json.Marshal(subscribeRequest{
		Action: "subscribe",
		Trades: symbols.Strings(),
		Quotes: symbols.Strings(),
	})
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	if err := t.Send(payload); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	return nil
}

// receiveWithin reads one frame, bounded by timeout when it is positive.
func receiveWithin(ctx context.Context, t Transport, timeout time.Duration) (Message, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return t.Receive(ctx)
}
