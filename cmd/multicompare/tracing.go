package main

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"multicompare/internal/config"
	"multicompare/internal/core"
)

const serviceName = "multicompare"

// tracingSetup is the run tracer plus the flush hook of its provider.
type tracingSetup struct {
	tracer   core.Tracer
	shutdown func(context.Context) error
}

// newTracing builds the tracer for cfg.Exporter. The json and stdout
// exporters write spans to w.
func newTracing(ctx context.Context, cfg config.Tracing, w io.Writer) (*tracingSetup, error) {
	noop := func(context.Context) error { return nil }
	switch cfg.Exporter {
	case "", "none":
		return &tracingSetup{shutdown: noop}, nil
	case "json":
		return &tracingSetup{tracer: core.NewJSONTracer(w), shutdown: noop}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
	case "otlp":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes("", attribute.String("service.name", serviceName))),
	)
	return &tracingSetup{tracer: core.NewOTelTracer(tp), shutdown: tp.Shutdown}, nil
}
