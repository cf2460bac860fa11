package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quotestream"

// Attempt results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// ConnectionAttempts counts handshake attempts by result.
	ConnectionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "connection_attempts_total",
		Help: "Connection attempts by result",
	}, []string{"result"})

	// ConnectionState is the numeric connection manager state.
	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "connection_state",
		Help: "Current connection manager state (0=connecting .. 6=failed)",
	})

	// Sessions counts sessions that reached streaming.
	Sessions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "sessions_total",
		Help: "Sessions that reached the streaming state",
	})

	// Frames counts inbound frames handed to the dispatcher.
	Frames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "frames_total",
		Help: "Inbound frames received while streaming",
	})

	// Events counts decoded events by type tag.
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_total",
		Help: "Decoded events by type",
	}, []string{"type"})

	// DecodeErrors counts frames dropped because they were not valid JSON.
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "decode_errors_total",
		Help: "Frames dropped because they failed to decode",
	})

	// UpdatesDropped counts price updates dropped on a full queue.
	UpdatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "updates_dropped_total",
		Help: "Price updates dropped because the consumer queue was full",
	})

	// ConsumerErrors counts errors returned by consumers and sinks.
	ConsumerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "consumer_errors_total",
		Help: "Errors returned by consumers",
	}, []string{"consumer"})
)
