package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jsphbtst/personal-alpaca-cli/internal/config"
	"github.com/jsphbtst/personal-alpaca-cli/internal/connection"
	"github.com/jsphbtst/personal-alpaca-cli/internal/consumer"
	"github.com/jsphbtst/personal-alpaca-cli/internal/database"
	"github.com/jsphbtst/personal-alpaca-cli/internal/logger"
	"github.com/jsphbtst/personal-alpaca-cli/internal/metrics"
	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
	"github.com/jsphbtst/personal-alpaca-cli/internal/router"
	"github.com/jsphbtst/personal-alpaca-cli/internal/telemetry"
	"github.com/jsphbtst/personal-alpaca-cli/internal/version"
	"github.com/jsphbtst/personal-alpaca-cli/internal/writer"
)

const shutdownTimeout = 10 * time.Second

// healthStatus is served on /health.
type healthStatus struct {
	State    string `json:"state"`
	Attempt  int    `json:"attempt"`
	Sessions int64  `json:"sessions"`
	Frames   int64  `json:"frames"`
	Quotes   int    `json:"quotes_known"`
	Dropped  int64  `json:"updates_dropped"`
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(loggerConfig(cfg.Logging))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting quotestream",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("url", cfg.Stream.URL),
		zap.Strings("symbols", cfg.Stream.Symbols),
		zap.String("mode", cfg.Consumer.Mode),
	)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			Endpoint:       cfg.Telemetry.Endpoint,
			ServiceName:    version.ServiceName,
			ServiceVersion: version.Version,
			Insecure:       cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	symbols, err := model.NewSymbolSet(cfg.Stream.Symbols...)
	if err != nil {
		return err
	}

	dispatcher := router.NewDispatcher(router.Config{UpdateBuffer: cfg.Stream.UpdateBuffer}, log)

	consumers, err := buildConsumers(ctx, cfg, symbols, os.Stdout, log)
	if err != nil {
		return err
	}
	fanOut := consumer.NewFanOut(log, consumers...)

	dialer := connection.NewDialer(connection.DialerConfig{
		URL:              cfg.Stream.URL,
		HandshakeTimeout: cfg.Stream.HandshakeTimeout,
		WriteTimeout:     cfg.Stream.WriteTimeout,
		UserAgent:        version.UserAgent(),
	}, log)

	manager := connection.NewManager(connection.ManagerConfig{
		Credentials:      cfg.Stream.Credentials(),
		Symbols:          symbols,
		MaxAttempts:      cfg.Stream.MaxAttempts,
		InitialBackoff:   cfg.Stream.InitialBackoff,
		MaxBackoff:       cfg.Stream.MaxBackoff,
		HeartbeatTimeout: cfg.Stream.HeartbeatTimeout,
		HandshakeTimeout: cfg.Stream.HandshakeTimeout,
	}, dialer, dispatcher, log, connection.WithStateHook(stateLogger(log)))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Closing the update channel lets the fan-out drain and exit.
		defer dispatcher.Close()
		return manager.Run(gctx)
	})

	g.Go(func() error {
		return fanOut.Run(gctx, dispatcher.Updates())
	})

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Metrics.Port,
			Path: cfg.Metrics.Path,
		}, func() any {
			st := manager.Stats()
			return healthStatus{
				State:    st.State.String(),
				Attempt:  st.Attempt,
				Sessions: st.Sessions,
				Frames:   st.Frames,
				Quotes:   dispatcher.Quotes().Len(),
				Dropped:  dispatcher.Stats().Dropped,
			}
		}, log)

		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	err = g.Wait()

	log.Info("quotestream stopped",
		zap.Stringer("stats", manager.Stats()),
		zap.Int64("delivered", fanOut.Delivered()),
		zap.Int64("consumer_failures", fanOut.Failures()),
	)
	return err
}

// buildConsumers returns the renderer for cfg.Consumer.Mode followed by the
// enabled sinks.
func buildConsumers(ctx context.Context, cfg *config.Config, symbols model.SymbolSet, out io.Writer, log *zap.Logger) ([]consumer.Consumer, error) {
	var consumers []consumer.Consumer

	switch cfg.Consumer.Mode {
	case "console":
		consumers = append(consumers, consumer.NewConsole(out, symbols))
	case "chart":
		consumers = append(consumers, consumer.NewChart(symbols, consumer.DefaultHistory, out))
	}

	// Sinks opened so far are closed if a later one fails.
	fail := func(err error) ([]consumer.Consumer, error) {
		for _, c := range consumers {
			if closer, ok := c.(io.Closer); ok {
				_ = closer.Close()
			}
		}
		return nil, err
	}

	if ts := cfg.Database.Timescale; ts.Enabled {
		pool, err := database.Connect(ctx, ts)
		if err != nil {
			return fail(fmt.Errorf("connect timescale: %w", err))
		}
		if err := database.EnsureSchema(ctx, pool, log); err != nil {
			pool.Close()
			return fail(err)
		}
		w := writer.NewTimescaleWriter(writer.WriterConfig{
			BatchSize:     ts.BatchSize,
			FlushInterval: ts.FlushInterval,
		}, pool, log)
		w.Start(ctx)
		consumers = append(consumers, &poolOwner{TimescaleWriter: w, close: pool.Close})
	}

	if cfg.Kafka.Enabled {
		p, err := writer.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			return fail(err)
		}
		consumers = append(consumers, p)
	}

	if cfg.Redis.Enabled {
		c, err := writer.NewRedisCache(ctx, cfg.Redis, log)
		if err != nil {
			return fail(err)
		}
		consumers = append(consumers, c)
	}

	return consumers, nil
}

// poolOwner closes the database pool after the writer's final flush.
type poolOwner struct {
	*writer.TimescaleWriter
	close func()
}

func (p *poolOwner) Close() error {
	err := p.TimescaleWriter.Close()
	p.close()
	return err
}

// loggerConfig sends logs to c.File when set, off the terminal a renderer
// redraws.
func loggerConfig(c config.LoggingConfig) logger.Config {
	lc := logger.Config{Level: c.Level, DevMode: c.DevMode}
	if c.File != "" {
		lc.OutputPaths = []string{c.File}
	}
	return lc
}

func stateLogger(log *zap.Logger) func(from, to connection.State) {
	return func(from, to connection.State) {
		switch to {
		case connection.StateStreaming:
			log.Info("connected, streaming quotes")
		case connection.StateBackoff:
			log.Warn("connection lost, backing off", zap.Stringer("from", from))
		case connection.StateFailed:
			log.Error("giving up on the feed")
		}
	}
}
