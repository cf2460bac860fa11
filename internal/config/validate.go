package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Stream.validate(); err != nil {
		return err
	}

	switch c.Consumer.Mode {
	case "console", "chart", "none":
	default:
		return fmt.Errorf("consumer.mode must be one of console, chart, none, got %q", c.Consumer.Mode)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}

	if c.Database.Timescale.Enabled {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required when kafka is enabled")
		}
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return errors.New("redis.url is required when redis is enabled")
	}

	return nil
}

func (s *StreamConfig) validate() error {
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("stream.url must be a ws:// or wss:// URL, got %q", s.URL)
	}
	if _, err := model.NewSymbolSet(s.Symbols...); err != nil {
		return fmt.Errorf("stream.symbols: %w", err)
	}
	if s.Key == "" {
		return errors.New("stream.key is required")
	}
	if s.Secret == "" {
		return errors.New("stream.secret is required")
	}
	if s.MaxAttempts < 1 {
		return errors.New("stream.max_attempts must be >= 1")
	}
	if s.InitialBackoff <= 0 {
		return errors.New("stream.initial_backoff must be > 0")
	}
	if s.MaxBackoff < s.InitialBackoff {
		return fmt.Errorf("stream.max_backoff (%v) cannot be less than initial_backoff (%v)", s.MaxBackoff, s.InitialBackoff)
	}
	if s.HeartbeatTimeout <= 0 {
		return errors.New("stream.heartbeat_timeout must be > 0")
	}
	if s.UpdateBuffer < 1 {
		return errors.New("stream.update_buffer must be >= 1")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	if db.BatchSize < 1 {
		return fmt.Errorf("%s.batch_size must be >= 1", prefix)
	}
	return nil
}
