package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/feridsherif/crms-frontend/internal/config"
)

func TestSetupDisabledInstallsPropagator(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OpenTelemetryOptions{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestSetupEnabledRequiresEndpoint(t *testing.T) {
	_, err := Setup(context.Background(), config.OpenTelemetryOptions{Enabled: true, Endpoint: " "})
	assert.Error(t, err)
}

func TestSetupEnabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OpenTelemetryOptions{
		Enabled: true, Endpoint: "http://localhost:4318/", ServiceName: "crms-test",
	})
	require.NoError(t, err)
	// Nothing was exported, so shutdown does not need a collector.
	assert.NoError(t, shutdown(context.Background()))
}

func TestTrimScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", trimScheme("https://collector:4318/"))
	assert.Equal(t, "localhost:4318", trimScheme("localhost:4318"))
}
