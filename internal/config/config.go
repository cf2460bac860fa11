package config

import (
	"time"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// Config is the root configuration for a quotestream instance.
type Config struct {
	Stream    StreamConfig    `yaml:"stream"`
	Consumer  ConsumerConfig  `yaml:"consumer"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
}

// StreamConfig holds the feed endpoint, credentials and reconnect limits.
//
// MaxAttempts also bounds reconnects after a session drops. The dropped
// session counts as attempt 1, so max_attempts: 1 makes any disconnect fatal.
type StreamConfig struct {
	URL              string        `yaml:"url"`
	Symbols          []string      `yaml:"symbols"`
	Key              string        `yaml:"key"`
	Secret           string        `yaml:"secret"`
	MaxAttempts      int           `yaml:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	UpdateBuffer     int           `yaml:"update_buffer"`
}

// Credentials returns the key/secret pair for the auth handshake.
func (s StreamConfig) Credentials() model.Credentials {
	return model.Credentials{Key: s.Key, Secret: s.Secret}
}

// ConsumerConfig selects the reference renderer.
type ConsumerConfig struct {
	Mode string `yaml:"mode"` // "console", "chart" or "none"
}

// LoggingConfig configures the zap logger.
//
// File receives the log when set. In console and chart mode logs default to
// DefaultLogFile so they do not interleave with the redrawn terminal block.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	DevMode bool   `yaml:"dev_mode"`
	File    string `yaml:"file"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// DatabaseConfig holds the TimescaleDB connection used by the quote writer.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Name          string        `yaml:"name"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	SSLMode       string        `yaml:"ssl_mode"`
	MaxConns      int           `yaml:"max_conns"`
	MinConns      int           `yaml:"min_conns"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// KafkaConfig holds the price update publisher settings.
type KafkaConfig struct {
	Enabled bool          `yaml:"enabled"`
	Brokers []string      `yaml:"brokers"`
	Topic   string        `yaml:"topic"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig holds the latest-quote cache settings.
type RedisConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	TTL     time.Duration `yaml:"ttl"`
}
