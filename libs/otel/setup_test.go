package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := ConfigFromEnv("booking-service")
	assert.False(t, cfg.Export)
	assert.Equal(t, 1.0, cfg.SampleRatio)

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	cfg = ConfigFromEnv("booking-service")
	assert.True(t, cfg.Export)
	assert.Equal(t, 0.25, cfg.SampleRatio)

	t.Setenv("OTEL_ENABLED", "false")
	assert.False(t, ConfigFromEnv("booking-service").Export)

	assert.Equal(t, 1.0, sampleRatio("2"))
	assert.Equal(t, 1.0, sampleRatio("x"))
}

func TestSetupWithoutExport(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
