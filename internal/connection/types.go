package connection

import (
	"context"
	"errors"
	"time"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// Errors
var (
	ErrNotConnected      = errors.New("not connected")
	ErrClosed            = errors.New("connection closed by peer")
	ErrHeartbeatTimeout  = errors.New("heartbeat timeout")
	ErrAttemptsExhausted = errors.New("reconnect attempts exhausted")
)

// Message is one inbound text frame.
type Message struct {
	Data       []byte    // Raw frame bytes
	ReceivedAt time.Time // Local timestamp when the frame was read
}

// Transport is a duplex text-frame channel.
type Transport interface {
	// Send writes one text frame.
	Send(data []byte) error

	// Receive blocks until the next text frame, a transport failure or ctx is done.
	// Only one Receive may be outstanding at a time.
	Receive(ctx context.Context) (Message, error)

	// Close performs a best-effort close handshake and releases the connection.
	Close() error

	// Abort releases the connection without a close handshake.
	Abort() error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// FrameHandler consumes inbound frames while a session is streaming.
type FrameHandler interface {
	HandleFrame(ctx context.Context, data []byte, receivedAt time.Time)
}

// ExitReason classifies why a streaming loop ended.
type ExitReason int

const (
	ExitShutdown ExitReason = iota
	ExitDisconnected
)

func (r ExitReason) String() string {
	if r == ExitShutdown {
		return "shutdown"
	}
	return "disconnected"
}

// DialerConfig configures the websocket dialer.
type DialerConfig struct {
	URL              string        // Feed URL (e.g., wss://stream.data.alpaca.markets/v2/iex)
	HandshakeTimeout time.Duration // WebSocket upgrade timeout
	WriteTimeout     time.Duration // Write deadline for sends
	UserAgent        string        // Sent as User-Agent when non-empty
}

// DefaultDialerConfig returns sensible defaults.
func DefaultDialerConfig() DialerConfig {
	return DialerConfig{
		URL:              "wss://stream.data.alpaca.markets/v2/iex",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Credentials      model.Credentials
	Symbols          model.SymbolSet
	MaxAttempts      int           // Attempts allowed before giving up
	InitialBackoff   time.Duration // Delay before the second attempt
	MaxBackoff       time.Duration // Cap on any single delay
	HeartbeatTimeout time.Duration // Max silence while streaming
	HandshakeTimeout time.Duration // Bound on each handshake reply
}

// DefaultManagerConfig returns sensible defaults. Credentials and symbols are
// left for the caller.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxAttempts:      5,
		InitialBackoff:   1000 * time.Millisecond,
		MaxBackoff:       60 * time.Second,
		HeartbeatTimeout: 30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Stats provides statistics about the connection manager.
type Stats struct {
	State    State
	Attempt  int
	Sessions int64 // Sessions that reached Streaming
	Frames   int64 // Frames received while streaming
}
