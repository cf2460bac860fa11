package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jsphbtst/personal-alpaca-cli/internal/config"
	"github.com/jsphbtst/personal-alpaca-cli/internal/version"
)

type options struct {
	configPath string
	envFile    string
	symbols    string
	mode       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "quotestream",
		Short:         "Stream live bid/ask quotes and derived prices",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to config file")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")
	f.StringVarP(&opts.symbols, "symbols", "s", "", "comma-separated symbols, overrides the config")
	f.StringVarP(&opts.mode, "mode", "m", "", "renderer: console, chart or none")

	return cmd
}

// loadConfig reads the config file, applies flag overrides and validates.
// A missing default config file is fine: env and flags can carry everything.
func loadConfig(opts *options, explicit bool) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		cfg = &config.Config{}
	default:
		return nil, err
	}

	if opts.symbols != "" {
		cfg.Stream.Symbols = nil
		for _, sym := range strings.Split(opts.symbols, ",") {
			cfg.Stream.Symbols = append(cfg.Stream.Symbols, strings.TrimSpace(sym))
		}
	}
	if opts.mode != "" {
		cfg.Consumer.Mode = opts.mode
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
