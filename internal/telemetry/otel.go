// Package telemetry installs the OpenTelemetry tracer provider. Components call
// otel.Tracer directly; when telemetry is disabled the global no-op provider
// stays in place and spans cost nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Config holds exporter settings.
type Config struct {
	Endpoint       string // OTLP collector host:port
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	Timeout        time.Duration // init and shutdown bound
	SamplerRatio   float64       // 0..1
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "quotestream"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.SamplerRatio <= 0 || c.SamplerRatio > 1 {
		c.SamplerRatio = 1
	}
}

func (c Config) validate() error {
	if c.Endpoint == "" {
		return errors.New("telemetry: endpoint is required")
	}
	return nil
}

// Init installs a global tracer provider exporting over OTLP/gRPC.
func Init(ctx context.Context, cfg Config, logger *zap.Logger) (ShutdownFunc, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(initCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("service", cfg.ServiceName),
	)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown: %w", err)
		}
		return nil
	}, nil
}
