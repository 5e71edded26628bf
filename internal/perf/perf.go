// Package perf captures in-process tracing spans for diagnostics.
package perf

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Config struct {
	Enabled bool
}

var (
	mu       sync.Mutex
	exporter *spanExporter
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer("nyxpatcher")
)

// Init wires the in-memory span pipeline. With Enabled false every
// StartSpan call becomes a no-op.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if !cfg.Enabled {
		tracer = noop.NewTracerProvider().Tracer("nyxpatcher")
		return nil
	}

	if exporter == nil {
		exporter = newSpanExporter()
	}
	if provider == nil {
		provider = sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		)
	}
	tracer = provider.Tracer("nyxpatcher")
	return nil
}

// Reset drops all captured spans. Tests call this between cases.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	if exporter != nil {
		exporter.Reset()
	}
}

func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

type Span struct {
	otel trace.Span
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, *Span) {
	mu.Lock()
	t := tracer
	mu.Unlock()

	ctx, span := t.Start(ctx, name, opts...)
	return ctx, &Span{otel: span}
}

func (span *Span) End() {
	if span == nil || span.otel == nil {
		return
	}
	span.otel.End()
}

func (span *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if span == nil || span.otel == nil {
		return
	}
	span.otel.SetAttributes(attrs...)
}

func (span *Span) AddEvent(name string, opts ...trace.EventOption) {
	if span == nil || span.otel == nil {
		return
	}
	span.otel.AddEvent(name, opts...)
}

func (span *Span) RecordError(err error) {
	if span == nil || span.otel == nil || err == nil {
		return
	}
	span.otel.RecordError(err)
}

func WithAttributes(attrs ...attribute.KeyValue) trace.SpanStartEventOption {
	return trace.WithAttributes(attrs...)
}

func WithEventAttributes(attrs ...attribute.KeyValue) trace.SpanStartEventOption {
	return trace.WithAttributes(attrs...)
}

// SnapshotSpans returns the raw spans exported so far. Spans only appear
// here once they have been ended.
func SnapshotSpans() ([]sdktrace.ReadOnlySpan, error) {
	mu.Lock()
	defer mu.Unlock()
	if exporter == nil {
		return nil, errors.New("performance tracking not initialised")
	}
	return exporter.Snapshot(), nil
}

func attributesToMap(attrs []attribute.KeyValue) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}
