package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"payment-widget/internal/config"
	"payment-widget/internal/logger"
)

func TestInitTracer(t *testing.T) {
	shutdown, err := InitTracer(config.TelemetryConfig{ServiceName: "payment-widget-test"}, logger.Discard())
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	assert.True(t, span.SpanContext().IsValid(), "installed provider records spans")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}
