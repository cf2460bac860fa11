package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Monitor bounds every read on a transport by the heartbeat timeout.
type Monitor struct {
	transport Transport
	timeout   time.Duration
}

// NewMonitor creates a monitor for t.
func NewMonitor(t Transport, heartbeat time.Duration) *Monitor {
	return &Monitor{transport: t, timeout: heartbeat}
}

// Next returns the next frame. Silence longer than the heartbeat yields an
// error wrapping ErrHeartbeatTimeout; a close frame or read failure is
// returned as is. If ctx itself is done, ctx.Err() is returned.
func (m *Monitor) Next(ctx context.Context) (Message, error) {
	msg, err := receiveWithin(ctx, m.transport, m.timeout)
	if err == nil {
		return msg, nil
	}
	if ctx.Err() != nil {
		return Message{}, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Message{}, fmt.Errorf("%w: no frame within %v", ErrHeartbeatTimeout, m.timeout)
	}
	return Message{}, err
}

// Stream reads frames into h until ctx is done or the connection is considered
// dead. The cancellation check runs at each iteration boundary, so a frame
// that races with cancellation is not dispatched. onFrame, if set, runs before
// each dispatch.
func (m *Monitor) Stream(ctx context.Context, h FrameHandler, onFrame func()) (ExitReason, error) {
	for {
		if ctx.Err() != nil {
			return ExitShutdown, nil
		}

		msg, err := m.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ExitShutdown, nil
			}
			return ExitDisconnected, err
		}
		if ctx.Err() != nil {
			return ExitShutdown, nil
		}

		if onFrame != nil {
			onFrame()
		}
		h.HandleFrame(ctx, msg.Data, msg.ReceivedAt)
	}
}
