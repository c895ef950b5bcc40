package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"payment-widget/internal/config"
	"payment-widget/internal/logger"
)

// InitTracer installs the global tracer provider and returns its shutdown
// function. Spans are only exported when stdout tracing is enabled.
func InitTracer(cfg config.TelemetryConfig, log *logger.Logger) (func(context.Context) error, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", "1.0.0"),
	)

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.StdoutTracing {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	log.LogProcess("TELEMETRY", fmt.Sprintf("Tracing initialized for service %s (stdout export: %t)", cfg.ServiceName, cfg.StdoutTracing))
	return tp.Shutdown, nil
}
