package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSDialer dials websocket transports.
type WSDialer struct {
	cfg    DialerConfig
	header http.Header
	logger *zap.Logger
}

// NewDialer creates a websocket dialer.
func NewDialer(cfg DialerConfig, logger *zap.Logger) *WSDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultDialerConfig().WriteTimeout
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}

	return &WSDialer{cfg: cfg, header: header, logger: logger}
}

// Dial establishes the websocket connection and starts its reader.
func (d *WSDialer) Dial(ctx context.Context) (Transport, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, resp, err := dialer.DialContext(ctx, d.cfg.URL, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.cfg.URL, err)
	}

	t := newWSTransport(conn, d.cfg.WriteTimeout, d.logger)
	d.logger.Debug("websocket connected", zap.String("url", d.cfg.URL))
	return t, nil
}

// wsTransport implements Transport over a gorilla connection.
//
// A single reader goroutine hands frames over an unbuffered channel, so at most
// one frame is read ahead of the caller.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *zap.Logger

	frames chan Message
	failed chan struct{} // closed when the reader stops on an error
	done   chan struct{} // closed by Close/Abort
	err    error         // valid after failed is closed

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func newWSTransport(conn *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger) *wsTransport {
	t := &wsTransport{
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
		frames:       make(chan Message),
		failed:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Send writes one text frame.
func (t *wsTransport) Send(data []byte) error {
	select {
	case <-t.done:
		return ErrNotConnected
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the next text frame.
func (t *wsTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-t.frames:
		return msg, nil
	case <-t.failed:
		return Message{}, t.err
	case <-t.done:
		return Message{}, ErrNotConnected
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close sends a normal-closure frame and closes the socket.
func (t *wsTransport) Close() error {
	return t.shutdown(true)
}

// Abort closes the socket without a close frame.
func (t *wsTransport) Abort() error {
	return t.shutdown(false)
}

func (t *wsTransport) shutdown(handshake bool) error {
	t.closeOnce.Do(func() {
		close(t.done)
		if handshake {
			// Best effort; the peer may already be gone.
			_ = t.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
		}
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// readLoop reads frames until the connection fails or is closed.
func (t *wsTransport) readLoop() {
	for {
		typ, data, err := t.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-t.done:
				return
			default:
			}
			t.err = classifyReadError(err)
			close(t.failed)
			return
		}

		if typ != websocket.TextMessage {
			t.logger.Debug("skipping non-text frame", zap.Int("type", typ))
			continue
		}

		select {
		case t.frames <- Message{Data: data, ReceivedAt: receivedAt}:
		case <-t.done:
			return
		}
	}
}

func classifyReadError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return fmt.Errorf("%w: %v", ErrClosed, ce)
	}
	return fmt.Errorf("read: %w", err)
}
