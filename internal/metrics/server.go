package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StatusFunc returns a JSON-encodable snapshot for /health.
type StatusFunc func() any

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	Port            int
	Path            string
	ShutdownTimeout time.Duration
}

func (c *ServerConfig) applyDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// Server serves Prometheus metrics and a health snapshot.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer builds the server. status may be nil.
func NewServer(cfg ServerConfig, status StatusFunc, logger *zap.Logger) *Server {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           NewHandler(cfg.Path, status),
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger.Named("metrics"),
	}
}

// NewHandler returns the mux serving path and /health.
func NewHandler(path string, status StatusFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var body any = map[string]string{"status": "ok"}
		if status != nil {
			body = status()
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return mux
}

// Start serves until ctx is done, then shuts down gracefully.
// Returns nil on a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("metrics server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("metrics server shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("metrics server stopped")
	return nil
}
