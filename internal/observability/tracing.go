package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// NewTracerProvider builds the span pipeline for service.
//
// Tracing is opt-in: when cfg.Enabled is false a no-op provider and a no-op
// shutdown are returned. Otherwise spans are exported synchronously as JSON
// to cfg.File, or to stderr when the file is empty.
//
// The returned shutdown function flushes pending spans, closes the file and
// should be deferred by the caller.
func NewTracerProvider(ctx context.Context, cfg config.TracingConfig, service string) (trace.TracerProvider, func(context.Context) error, error) {
	nop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop.NewTracerProvider(), nop, nil
	}

	var (
		w       io.Writer = os.Stderr
		closeFn           = nop
	)
	if cfg.File != "" {
		f, err := os.Create(cfg.File)
		if err != nil {
			return nil, nop, fmt.Errorf("opening trace file: %w", err)
		}
		w = f
		closeFn = func(context.Context) error { return f.Close() }
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		_ = closeFn(ctx)
		return nil, nop, fmt.Errorf("creating trace exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(service)))
	if err != nil {
		_ = closeFn(ctx)
		return nil, nop, fmt.Errorf("creating trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), closeFn(ctx))
	}
	return tp, shutdown, nil
}
