package connection

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jsphbtst/personal-alpaca-cli/internal/metrics"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStateHook registers fn to be called on every state change.
func WithStateHook(fn func(from, to State)) ManagerOption {
	return func(m *Manager) {
		m.onStateChange = fn
	}
}

// Manager drives one streaming session at a time, reconnecting with
// exponential backoff until the context is cancelled or attempts run out.
type Manager struct {
	cfg     ManagerConfig
	dialer  Dialer
	handler FrameHandler
	logger  *zap.Logger
	tracer  trace.Tracer

	attempts      *Attempts
	onStateChange func(from, to State)
	sleep         func(ctx context.Context, d time.Duration) error

	// Observed from other goroutines via Stats.
	state    atomic.Int32
	attempt  atomic.Int32
	sessions atomic.Int64
	frames   atomic.Int64
}

// NewManager creates a Connection Manager.
func NewManager(cfg ManagerConfig, dialer Dialer, handler FrameHandler, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		cfg:      cfg,
		dialer:   dialer,
		handler:  handler,
		logger:   logger.Named("manager"),
		tracer:   otel.Tracer("quotestream/connection"),
		attempts: NewAttempts(cfg.MaxAttempts, cfg.InitialBackoff, cfg.MaxBackoff),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// session is the per-attempt working set.
type session struct {
	id        string
	log       *zap.Logger
	transport Transport
	ctx       context.Context // carries the attempt span
	span      trace.Span
	spanDone  bool
}

func (s *session) endSpan() {
	if !s.spanDone {
		s.span.End()
		s.spanDone = true
	}
}

// Run executes the state machine. It returns nil when ctx is cancelled and an
// error wrapping ErrAttemptsExhausted when the attempt cap is exceeded.
func (m *Manager) Run(ctx context.Context) error {
	m.attempts.Reset()
	first, _, err := m.attempts.Next()
	if err != nil {
		return err
	}
	m.attempt.Store(int32(first))

	var (
		state   = StateConnecting
		sess    *session
		exitErr error
	)
	m.setState(state, state)

	for {
		var ev Event
		switch state {
		case StateConnecting:
			sess, ev = m.connect(ctx)
		case StateAuthenticating:
			ev = m.authenticate(ctx, sess)
		case StateSubscribing:
			ev = m.subscribe(ctx, sess)
		case StateStreaming:
			ev = m.stream(ctx, sess)
		case StateBackoff:
			ev, exitErr = m.backoff(ctx)
		case StateShuttingDown:
			if sess != nil {
				if sess.transport != nil {
					_ = sess.transport.Close()
				}
				sess.endSpan()
			}
			m.logger.Info("shutdown complete")
			return nil
		case StateFailed:
			m.logger.Error("giving up", zap.Int("max_attempts", m.cfg.MaxAttempts), zap.Error(exitErr))
			return exitErr
		}

		next := Transition(state, ev)
		if sess != nil && next == StateBackoff {
			m.endSession(sess)
			sess = nil
		}
		if next == StateStreaming {
			// Fully established: the only point the counter resets.
			m.attempts.Reset()
			m.attempt.Store(0)
		}
		m.setState(state, next)
		state = next
	}
}

// connect dials and waits for the connection acknowledgement.
func (m *Manager) connect(ctx context.Context) (*session, Event) {
	attempt := m.attempts.Current()
	sess := &session{id: uuid.NewString()}
	sess.log = m.logger.With(
		zap.String("session_id", sess.id),
		zap.Int("attempt", attempt),
	)
	sess.ctx, sess.span = m.tracer.Start(ctx, "connection.attempt",
		trace.WithAttributes(attribute.Int("attempt", attempt), attribute.String("session_id", sess.id)))

	sess.log.Info("connecting", zap.Int("max_attempts", m.cfg.MaxAttempts))

	t, err := m.dialer.Dial(sess.ctx)
	if err != nil {
		return sess, m.stepFailed(ctx, sess, "connect failed", err)
	}
	sess.transport = t

	ack, err := receiveWithin(sess.ctx, t, m.cfg.HandshakeTimeout)
	if err != nil {
		return sess, m.stepFailed(ctx, sess, "no connection acknowledgement", err)
	}
	sess.log.Debug("connection acknowledged", zap.ByteString("frame", ack.Data))
	return sess, EventSucceeded
}

func (m *Manager) authenticate(ctx context.Context, sess *session) Event {
	spanCtx, span := m.tracer.Start(sess.ctx, "connection.authenticate")
	defer span.End()

	reply, err := Authenticate(spanCtx, sess.transport, m.cfg.Credentials, m.cfg.HandshakeTimeout)
	if err != nil {
		span.RecordError(err)
		return m.stepFailed(ctx, sess, "authentication failed", err)
	}
	sess.log.Debug("auth reply", zap.ByteString("frame", reply))
	return EventSucceeded
}

func (m *Manager) subscribe(ctx context.Context, sess *session) Event {
	_, span := m.tracer.Start(sess.ctx, "connection.subscribe",
		trace.WithAttributes(attribute.StringSlice("symbols", m.cfg.Symbols.Strings())))
	defer span.End()

	if ctx.Err() != nil {
		return EventShutdown
	}
	if err := Subscribe(sess.transport, m.cfg.Symbols); err != nil {
		span.RecordError(err)
		return m.stepFailed(ctx, sess, "subscribe failed", err)
	}
	return EventSucceeded
}

// stream runs the liveness-monitored read loop for an established session.
func (m *Manager) stream(ctx context.Context, sess *session) Event {
	metrics.ConnectionAttempts.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.Sessions.Inc()
	m.sessions.Add(1)
	sess.endSpan()

	sess.log.Info("streaming", zap.Strings("symbols", m.cfg.Symbols.Strings()))

	mon := NewMonitor(sess.transport, m.cfg.HeartbeatTimeout)
	reason, err := mon.Stream(ctx, m.handler, func() {
		m.frames.Add(1)
		metrics.Frames.Inc()
	})
	if reason == ExitShutdown {
		sess.log.Info("stream stopped", zap.Stringer("reason", reason))
		return EventShutdown
	}

	sess.log.Warn("stream disconnected", zap.Stringer("reason", reason), zap.Error(err))

	// The dropped session counts as attempt 1, so the first reconnect waits
	// the initial backoff.
	attempt, _, _ := m.attempts.Next()
	m.attempt.Store(int32(attempt))
	return EventDisconnected
}

func (m *Manager) backoff(ctx context.Context) (Event, error) {
	attempt, delay, err := m.attempts.Next()
	if err != nil {
		return EventExhausted, err
	}
	m.attempt.Store(int32(attempt))

	m.logger.Info("reconnecting",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", m.cfg.MaxAttempts),
		zap.Duration("backoff", delay),
	)
	if err := m.sleep(ctx, delay); err != nil {
		return EventShutdown, nil
	}
	return EventRetry, nil
}

// stepFailed classifies a handshake step error. Cancellation wins over failure.
func (m *Manager) stepFailed(ctx context.Context, sess *session, msg string, err error) Event {
	if ctx.Err() != nil {
		return EventShutdown
	}
	sess.log.Warn(msg, zap.Error(err))
	sess.span.RecordError(err)
	sess.span.SetStatus(codes.Error, msg)
	metrics.ConnectionAttempts.WithLabelValues(metrics.ResultFailure).Inc()
	return EventFailed
}

// endSession releases a failed or dropped session without a close handshake.
func (m *Manager) endSession(sess *session) {
	if sess.transport != nil {
		if err := sess.transport.Abort(); err != nil {
			sess.log.Debug("abort transport", zap.Error(err))
		}
	}
	sess.endSpan()
}

func (m *Manager) setState(from, to State) {
	m.state.Store(int32(to))
	metrics.ConnectionState.Set(float64(to))
	if from != to {
		m.logger.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", to))
	}
	if m.onStateChange != nil {
		m.onStateChange(from, to)
	}
}

// State returns the current state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Stats returns current connection statistics.
func (m *Manager) Stats() Stats {
	return Stats{
		State:    m.State(),
		Attempt:  int(m.attempt.Load()),
		Sessions: m.sessions.Load(),
		Frames:   m.frames.Load(),
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// String renders stats for log lines.
func (s Stats) String() string {
	return fmt.Sprintf("state=%s attempt=%d sessions=%d frames=%d", s.State, s.Attempt, s.Sessions, s.Frames)
}
