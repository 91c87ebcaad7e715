package observability_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/internal/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "gitsleuth", cfg.ServiceName)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestInit_NoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.NotNil(t, providers.MetricsHandler)
	require.NotNil(t, providers.Shutdown)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_MeterRecordsWithoutCollector(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	pm, err := observability.NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	// Recording against the Prometheus-backed provider must not block or
	// error even though nothing scrapes it.
	pm.RecordRun(context.Background(), observability.RunStats{
		RunID:         "local",
		Commits:       1,
		CacheHitRatio: -1,
	})
}

func TestInit_RuntimeMetricsRegister(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	rm, err := observability.NewRuntimeMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotNil(t, rm)
}

func TestInit_JSONLogger(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogLevel = slog.LevelDebug

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.True(t, providers.Logger.Enabled(context.Background(), slog.LevelDebug))
}
