// Package otel installs the global tracer provider for the bridge. Spans come
// from the otelhttp middleware on the REST mux; the trace id also lands in
// error envelopes, so the provider is installed even when nothing exports.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "nostrmarket"

// Init configures the global tracer provider and returns its shutdown func.
// With stdout false no exporter is attached: spans get ids for log and error
// correlation but are never written anywhere.
func Init(ctx context.Context, version string, stdout bool) (func(context.Context) error, error) {
	res, err := sdkresource.New(ctx,
		sdkresource.WithHost(),
		sdkresource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if stdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
