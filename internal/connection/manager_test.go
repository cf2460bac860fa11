package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

const (
	ackFrame  = `[{"T":"success","msg":"connected"}]`
	authFrame = `[{"T":"success","msg":"authenticated"}]`
)

func testManagerConfig(t *testing.T) ManagerConfig {
	t.Helper()
	symbols, err := model.NewSymbolSet("AAPL", "MSFT")
	require.NoError(t, err)

	cfg := DefaultManagerConfig()
	cfg.Credentials = model.Credentials{Key: "PK", Secret: "SK"}
	cfg.Symbols = symbols
	cfg.HandshakeTimeout = 200 * time.Millisecond
	return cfg
}

// healthyTransport acknowledges the connection and the auth request.
func healthyTransport() *fakeTransport {
	return newFakeTransport(ackFrame, authFrame)
}

type runResult struct {
	err error
}

func runAsync(ctx context.Context, m *Manager) <-chan runResult {
	done := make(chan runResult, 1)
	go func() { done <- runResult{err: m.Run(ctx)} }()
	return done
}

func waitRun(t *testing.T, done <-chan runResult) error {
	t.Helper()
	select {
	case r := <-done:
		return r.err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestManager_ExhaustsAttempts(t *testing.T) {
	dialer := &fakeDialer{next: func(int) (Transport, error) {
		return nil, errors.New("connection refused")
	}}
	sleeps := &sleepRecorder{}

	m := NewManager(testManagerConfig(t), dialer, newRecordingHandler(), nil)
	m.sleep = sleeps.sleep

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Contains(t, err.Error(), "failed to connect after 5 attempts")

	assert.Equal(t, 5, dialer.Dials(), "no attempt beyond the cap")
	assert.Equal(t, []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
	}, sleeps.Delays())
	assert.Equal(t, StateFailed, m.State())
	assert.Equal(t, 5, m.Stats().Attempt)
}

func TestManager_AuthFailureConsumesAttempts(t *testing.T) {
	var transports []*fakeTransport
	dialer := &fakeDialer{next: func(int) (Transport, error) {
		// Connection ack arrives but the auth reply never does.
		tr := newFakeTransport(ackFrame)
		transports = append(transports, tr)
		return tr, nil
	}}

	cfg := testManagerConfig(t)
	cfg.MaxAttempts = 2
	cfg.HandshakeTimeout = 20 * time.Millisecond
	m := NewManager(cfg, dialer, newRecordingHandler(), nil)
	m.sleep = (&sleepRecorder{}).sleep

	err := m.Run(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, dialer.Dials())

	for _, tr := range transports {
		closed, aborted := tr.Closed()
		assert.False(t, closed, "no close handshake on failure")
		assert.True(t, aborted)
	}
}

func TestManager_EndToEnd(t *testing.T) {
	tr := healthyTransport()
	dialer := &fakeDialer{next: func(n int) (Transport, error) {
		if n > 1 {
			t.Errorf("unexpected reconnect, dial %d", n)
		}
		return tr, nil
	}}
	handler := newRecordingHandler()
	sleeps := &sleepRecorder{}

	var (
		mu         sync.Mutex
		states     []State
		streamSeen = -1
	)
	var m *Manager
	m = NewManager(testManagerConfig(t), dialer, handler, nil, WithStateHook(func(_, to State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, to)
		if to == StateStreaming {
			streamSeen = m.Stats().Attempt
		}
	}))
	m.sleep = sleeps.sleep

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, m)

	tr.push(`[{"T":"q","S":"AAPL","bp":150.00,"ap":150.20}]`)

	select {
	case frame := <-handler.frames:
		assert.Contains(t, frame, `"S":"AAPL"`)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not dispatched")
	}

	cancel()
	require.NoError(t, waitRun(t, done))

	assert.Equal(t, 1, dialer.Dials())
	assert.Empty(t, sleeps.Delays())

	sent := tr.Sent()
	require.Len(t, sent, 2)
	assert.JSONEq(t, `{"action":"auth","key":"PK","secret":"SK"}`, sent[0])
	assert.JSONEq(t, `{"action":"subscribe","trades":["AAPL","MSFT"],"quotes":["AAPL","MSFT"]}`, sent[1])

	closed, aborted := tr.Closed()
	assert.True(t, closed, "graceful shutdown sends close")
	assert.False(t, aborted)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, streamSeen)
	assert.Equal(t, []State{
		StateConnecting, StateAuthenticating, StateSubscribing, StateStreaming, StateShuttingDown,
	}, states)

	stats := m.Stats()
	assert.Equal(t, StateShuttingDown, stats.State)
	assert.Equal(t, int64(1), stats.Sessions)
	assert.Equal(t, int64(1), stats.Frames)
}

func TestManager_ResetsAfterFailedAttempts(t *testing.T) {
	dialer := &fakeDialer{next: func(n int) (Transport, error) {
		if n < 4 {
			return nil, errors.New("connection refused")
		}
		return healthyTransport(), nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attemptAtStreaming := make(chan int, 1)
	var m *Manager
	m = NewManager(testManagerConfig(t), dialer, newRecordingHandler(), nil, WithStateHook(func(_, to State) {
		if to == StateStreaming {
			attemptAtStreaming <- m.Stats().Attempt
			cancel()
		}
	}))
	sleeps := &sleepRecorder{}
	m.sleep = sleeps.sleep

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 0, <-attemptAtStreaming)
	assert.Equal(t, 4, dialer.Dials())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeps.Delays())
}

func TestManager_HeartbeatTimeoutSchedulesInitialBackoff(t *testing.T) {
	dialer := &fakeDialer{next: func(int) (Transport, error) {
		return healthyTransport(), nil
	}}

	cfg := testManagerConfig(t)
	cfg.HeartbeatTimeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeps := &sleepRecorder{onCall: func(int) { cancel() }}
	m := NewManager(cfg, dialer, newRecordingHandler(), nil)
	m.sleep = sleeps.sleep

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, []time.Duration{cfg.InitialBackoff}, sleeps.Delays(), "backoff(2) after a dropped session")
	assert.Equal(t, 1, dialer.Dials())
	assert.Equal(t, 2, m.Stats().Attempt)
}

func TestManager_ReconnectsAfterDisconnect(t *testing.T) {
	first := healthyTransport()
	first.fail(ErrClosed)
	second := healthyTransport()

	dialer := &fakeDialer{next: func(n int) (Transport, error) {
		if n == 1 {
			return first, nil
		}
		return second, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streams := 0
	m := NewManager(testManagerConfig(t), dialer, newRecordingHandler(), nil, WithStateHook(func(_, to State) {
		if to == StateStreaming {
			streams++
			if streams == 2 {
				cancel()
			}
		}
	}))
	m.sleep = (&sleepRecorder{}).sleep

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 2, dialer.Dials())
	assert.Equal(t, int64(2), m.Stats().Sessions)

	closed, aborted := first.Closed()
	assert.False(t, closed)
	assert.True(t, aborted, "dropped session released without close frame")
}

func TestManager_SingleAttemptDisconnectIsFatal(t *testing.T) {
	tr := healthyTransport()
	tr.fail(ErrClosed)
	dialer := &fakeDialer{next: func(int) (Transport, error) { return tr, nil }}

	cfg := testManagerConfig(t)
	cfg.MaxAttempts = 1
	m := NewManager(cfg, dialer, newRecordingHandler(), nil)
	rec := &sleepRecorder{}
	m.sleep = rec.sleep

	err := m.Run(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 1, dialer.Dials())
	assert.Empty(t, rec.Delays())
	assert.Equal(t, int64(1), m.Stats().Sessions)
	assert.Equal(t, 1, m.Stats().Attempt)
}

func TestManager_CancelDuringBackoff(t *testing.T) {
	dialer := &fakeDialer{next: func(int) (Transport, error) {
		return nil, errors.New("connection refused")
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(testManagerConfig(t), dialer, newRecordingHandler(), nil)
	m.sleep = (&sleepRecorder{onCall: func(int) { cancel() }}).sleep

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 1, dialer.Dials())
	assert.Equal(t, StateShuttingDown, m.State())
}

func TestManager_CancelDuringHandshake(t *testing.T) {
	tr := newFakeTransport(ackFrame) // auth reply never arrives
	dialer := &fakeDialer{next: func(int) (Transport, error) { return tr, nil }}

	cfg := testManagerConfig(t)
	cfg.HandshakeTimeout = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(cfg, dialer, newRecordingHandler(), nil, WithStateHook(func(_, to State) {
		if to == StateAuthenticating {
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
		}
	}))

	require.NoError(t, waitRun(t, runAsync(ctx, m)))
	closed, _ := tr.Closed()
	assert.True(t, closed)
}

func TestManager_ZeroAttemptsFailsImmediately(t *testing.T) {
	dialer := &fakeDialer{next: func(int) (Transport, error) { return healthyTransport(), nil }}
	cfg := testManagerConfig(t)
	cfg.MaxAttempts = 0

	err := NewManager(cfg, dialer, newRecordingHandler(), nil).Run(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Zero(t, dialer.Dials())
}
