// Package telemetry provides the OpenTelemetry-backed implementation of
// core.Telemetry. Counters and histograms are named the way the
// teacher names them: "<module>.<event>" with low-cardinality labels.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/kazkozdev/promptstudio/core"
)

// otelTelemetry implements core.Telemetry over a process-scoped tracer
// and meter. Construct one at startup and pass it by reference. New
// registers its tracer provider as the OpenTelemetry global and takes
// its meter from the global meter provider.
type otelTelemetry struct {
	tracer oteltrace.Tracer
	meter  metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

// Option configures New.
type Option func(*options)

type options struct {
	serviceName string
}

func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// New builds a stdout-exporting tracer provider by default — matching
// the teacher's local-dev fallback — and registers it as the global
// tracer provider.
func New(opts ...Option) (core.Telemetry, func(context.Context) error, error) {
	o := &options{serviceName: "promptstudio"}
	for _, fn := range opts {
		fn(o)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	t := &otelTelemetry{
		tracer:     tp.Tracer(o.serviceName),
		meter:      otel.GetMeterProvider().Meter(o.serviceName),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
	return t, tp.Shutdown, nil
}

type otelSpan struct {
	span oteltrace.Span
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(attribute.String(key, toString(value)))
}

func (s *otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}

func (s *otelSpan) End() { s.span.End() }

func (t *otelTelemetry) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

func (t *otelTelemetry) Counter(name string, value float64, labels ...string) {
	t.mu.Lock()
	c, ok := t.counters[name]
	if !ok {
		var err error
		c, err = t.meter.Float64Counter(name)
		if err != nil {
			t.mu.Unlock()
			return
		}
		t.counters[name] = c
	}
	t.mu.Unlock()
	c.Add(context.Background(), value, metric.WithAttributes(toAttrs(labels)...))
}

func (t *otelTelemetry) Histogram(name string, value float64, labels ...string) {
	t.mu.Lock()
	h, ok := t.histograms[name]
	if !ok {
		var err error
		h, err = t.meter.Float64Histogram(name)
		if err != nil {
			t.mu.Unlock()
			return
		}
		t.histograms[name] = h
	}
	t.mu.Unlock()
	h.Record(context.Background(), value, metric.WithAttributes(toAttrs(labels)...))
}

func toAttrs(labels []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}
	return attrs
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
