package connection

// State is a Connection Manager state.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateSubscribing
	StateStreaming
	StateBackoff
	StateShuttingDown
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	case StateShuttingDown:
		return "shutting_down"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether Run returns once s is reached.
func (s State) Terminal() bool {
	return s == StateShuttingDown || s == StateFailed
}

// Event is the outcome of running one state.
type Event int

const (
	EventSucceeded    Event = iota // step completed
	EventFailed                    // step failed; counts as a failed attempt
	EventShutdown                  // cancellation observed
	EventDisconnected              // streaming session lost
	EventRetry                     // backoff elapsed
	EventExhausted                 // no attempts left
)

func (e Event) String() string {
	switch e {
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventShutdown:
		return "shutdown"
	case EventDisconnected:
		return "disconnected"
	case EventRetry:
		return "retry"
	case EventExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Transition returns the state that follows s on e. Pairs with no defined
// transition leave s unchanged; terminal states never change.
func Transition(s State, e Event) State {
	if s.Terminal() {
		return s
	}
	if e == EventShutdown {
		return StateShuttingDown
	}

	switch s {
	case StateConnecting:
		switch e {
		case EventSucceeded:
			return StateAuthenticating
		case EventFailed:
			return StateBackoff
		}
	case StateAuthenticating:
		switch e {
		case EventSucceeded:
			return StateSubscribing
		case EventFailed:
			return StateBackoff
		}
	case StateSubscribing:
		switch e {
		case EventSucceeded:
			return StateStreaming
		case EventFailed:
			return StateBackoff
		}
	case StateStreaming:
		if e == EventDisconnected {
			return StateBackoff
		}
	case StateBackoff:
		switch e {
		case EventRetry:
			return StateConnecting
		case EventExhausted:
			return StateFailed
		}
	}
	return s
}
