package connection

import (
	"context"
	"sync"
	"time"
)

// fakeFrame is one scripted Receive result.
type fakeFrame struct {
	data string
	err  error
}

// fakeTransport is a scripted in-memory Transport.
type fakeTransport struct {
	inbox   chan fakeFrame
	sendErr error

	mu       sync.Mutex
	sent     []string
	receives int
	closed   bool
	aborted  bool
}

func newFakeTransport(frames ...string) *fakeTransport {
	t := &fakeTransport{inbox: make(chan fakeFrame, 64)}
	for _, f := range frames {
		t.inbox <- fakeFrame{data: f}
	}
	return t
}

func (t *fakeTransport) push(data string) { t.inbox <- fakeFrame{data: data} }
func (t *fakeTransport) fail(err error)   { t.inbox <- fakeFrame{err: err} }

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, string(data))
	return nil
}

func (t *fakeTransport) Receive(ctx context.Context) (Message, error) {
	t.mu.Lock()
	t.receives++
	t.mu.Unlock()

	select {
	case f := <-t.inbox:
		if f.err != nil {
			return Message{}, f.err
		}
		return Message{Data: []byte(f.data), ReceivedAt: time.Now()}, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aborted = true
	return nil
}

func (t *fakeTransport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

func (t *fakeTransport) Receives() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.receives
}

func (t *fakeTransport) Pending() int { return len(t.inbox) }

func (t *fakeTransport) Closed() (closed, aborted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed, t.aborted
}

// fakeDialer hands out transports from a per-dial script.
type fakeDialer struct {
	mu    sync.Mutex
	dials int
	next  func(n int) (Transport, error) // n is 1-based
}

func (d *fakeDialer) Dial(ctx context.Context) (Transport, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.next(n)
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recordingHandler captures frames handed to it.
type recordingHandler struct {
	frames chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{frames: make(chan string, 64)}
}

func (h *recordingHandler) HandleFrame(_ context.Context, data []byte, _ time.Time) {
	h.frames <- string(data)
}

// sleepRecorder replaces Manager.sleep so tests never wait.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	onCall func(n int)
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	n := len(s.delays)
	hook := s.onCall
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
