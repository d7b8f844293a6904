package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records partial rendering metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRender records one render with its duration and error status.
	RecordRender(ctx context.Context, name string, duration time.Duration, err error)

	// RecordResolve records one resolution attempt and whether it found a
	// template.
	RecordResolve(ctx context.Context, name string, found bool)

	// RecordOutputSize records the size of a rendered partial.
	RecordOutputSize(ctx context.Context, name string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	renders       metric.Int64Counter
	renderLatency metric.Float64Histogram
	renderErrors  metric.Int64Counter
	resolves      metric.Int64Counter
	resolveMisses metric.Int64Counter
	outputSize    metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("partial")

	renders, err := meter.Int64Counter("partial.renders",
		metric.WithDescription("Number of partial renders"),
	)
	if err != nil {
		return nil, err
	}

	renderLatency, err := meter.Float64Histogram("partial.render.latency_ms",
		metric.WithDescription("Partial render latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	renderErrors, err := meter.Int64Counter("partial.render.errors",
		metric.WithDescription("Number of partial render errors"),
	)
	if err != nil {
		return nil, err
	}

	resolves, err := meter.Int64Counter("partial.resolve.lookups",
		metric.WithDescription("Number of template resolutions"),
	)
	if err != nil {
		return nil, err
	}

	resolveMisses, err := meter.Int64Counter("partial.resolve.misses",
		metric.WithDescription("Number of template resolutions that found nothing"),
	)
	if err != nil {
		return nil, err
	}

	outputSize, err := meter.Int64Histogram("partial.output.size_bytes",
		metric.WithDescription("Rendered partial size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		renders:       renders,
		renderLatency: renderLatency,
		renderErrors:  renderErrors,
		resolves:      resolves,
		resolveMisses: resolveMisses,
		outputSize:    outputSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordRender records one render.
func (m *otelMetrics) RecordRender(ctx context.Context, name string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("template", name),
	}

	m.renders.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.renderLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.renderErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordResolve records one resolution attempt.
func (m *otelMetrics) RecordResolve(ctx context.Context, name string, found bool) {
	attrs := []attribute.KeyValue{
		attribute.String("template", name),
		attribute.Bool("found", found),
	}
	m.resolves.Add(ctx, 1, metric.WithAttributes(attrs...))
	if !found {
		m.resolveMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("template", name)))
	}
}

// RecordOutputSize records the rendered size.
func (m *otelMetrics) RecordOutputSize(ctx context.Context, name string, sizeBytes int64) {
	attrs := []attribute.KeyValue{
		attribute.String("template", name),
	}
	m.outputSize.Record(ctx, sizeBytes, metric.WithAttributes(attrs...))
}
