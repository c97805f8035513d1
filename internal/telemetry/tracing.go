package telemetry

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc останавливает провайдер трассировки и сбрасывает буферы.
type ShutdownFunc func(ctx context.Context) error

// SetupTracing настраивает глобальный TracerProvider.
//
// Режим определяется переменной OTEL_TRACES:
//   - "stdout" — спаны пишутся в stdout
//   - "stderr" — спаны пишутся в stderr
//   - иначе трассировка выключена (no-op провайдер otel по умолчанию)
func SetupTracing(serviceName string) (ShutdownFunc, error) {
	var w io.Writer
	switch os.Getenv("OTEL_TRACES") {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	tp, err := NewTracerProvider(serviceName, exporter)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// NewTracerProvider создаёт провайдер с синхронной отправкой спанов в exporter.
func NewTracerProvider(serviceName string, exporter sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}
