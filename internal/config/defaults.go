package config

import (
	"os"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultStreamURL        = "wss://stream.data.alpaca.markets/v2/iex"
	DefaultMaxAttempts      = 5
	DefaultInitialBackoff   = 1000 * time.Millisecond
	DefaultMaxBackoff       = 60 * time.Second
	DefaultHeartbeatTimeout = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultUpdateBuffer     = 100
	DefaultConsumerMode     = "console"
	DefaultLogLevel         = "info"
	DefaultLogFile          = "quotestream.log"
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultBatchSize        = 500
	DefaultFlushInterval    = 1 * time.Second
	DefaultKafkaTopic       = "quotes.prices"
	DefaultKafkaTimeout     = 5 * time.Second
	DefaultRedisTTL         = 10 * time.Minute
)

// ApplyDefaults fills zero-valued fields. Safe to call more than once.
func (c *Config) ApplyDefaults() {
	// Stream defaults
	s := &c.Stream
	if s.URL == "" {
		s.URL = DefaultStreamURL
	}
	if s.Key == "" {
		s.Key = os.Getenv(EnvKey)
	}
	if s.Secret == "" {
		s.Secret = os.Getenv(EnvSecret)
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.InitialBackoff == 0 {
		s.InitialBackoff = DefaultInitialBackoff
	}
	if s.MaxBackoff == 0 {
		s.MaxBackoff = DefaultMaxBackoff
	}
	if s.HeartbeatTimeout == 0 {
		s.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if s.HandshakeTimeout == 0 {
		s.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.UpdateBuffer == 0 {
		s.UpdateBuffer = DefaultUpdateBuffer
	}

	if c.Consumer.Mode == "" {
		c.Consumer.Mode = DefaultConsumerMode
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.File == "" && c.Consumer.Mode != "none" {
		c.Logging.File = DefaultLogFile
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	applyDBDefaults(&c.Database.Timescale)

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}
	if c.Kafka.Timeout == 0 {
		c.Kafka.Timeout = DefaultKafkaTimeout
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.BatchSize == 0 {
		db.BatchSize = DefaultBatchSize
	}
	if db.FlushInterval == 0 {
		db.FlushInterval = DefaultFlushInterval
	}
}
