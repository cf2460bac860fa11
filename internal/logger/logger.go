// Package logger builds the zap logger shared by every component.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and the output encoding.
//
// Level is one of "debug", "info", "warn", "error" (default "info").
// DevMode switches from JSON to human-readable console output.
// OutputPaths are zap sink URLs or file paths (default stderr).
type Config struct {
	Level       string
	DevMode     bool
	OutputPaths []string
}

func (c *Config) applyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// New builds a *zap.Logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	cfg.applyDefaults()

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
	}

	zapCfg := buildZapConfig(cfg.DevMode)
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
		zapCfg.ErrorOutputPaths = cfg.OutputPaths
	}

	zl, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build zap: %w", err)
	}
	return zl, nil
}

func buildZapConfig(dev bool) zap.Config {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
		cfg.EncoderConfig.StacktraceKey = "stacktrace"
	}

	ec := &cfg.EncoderConfig
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.CallerKey = "caller"
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}
