package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_RequiresEndpoint(t *testing.T) {
	_, err := Init(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{SamplerRatio: 3}
	cfg.applyDefaults()

	assert.Equal(t, "quotestream", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 1.0, cfg.SamplerRatio)
}

func TestInit_Shutdown(t *testing.T) {
	// The gRPC exporter connects lazily, so Init succeeds without a collector.
	shutdown, err := Init(context.Background(), Config{Endpoint: "localhost:4317", Insecure: true, Timeout: time.Second}, nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
