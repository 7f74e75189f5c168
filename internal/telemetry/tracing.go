package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rl1809/zoo-retail"

// Setup installs the global tracer provider. An empty mode keeps the no-op provider.
func Setup(mode string) (func(context.Context) error, error) {
	switch mode {
	case "":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	default:
		return nil, fmt.Errorf("unknown tracing mode %q", mode)
	}
}

func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
