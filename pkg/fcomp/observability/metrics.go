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

const instrumentationName = "fcomp"

// MetricsRecorder records component metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRender records a render flush of batchSize queued patches.
	RecordRender(ctx context.Context, component string, duration time.Duration, batchSize int)

	// RecordLifecycle records a settled lifecycle chain invocation.
	RecordLifecycle(ctx context.Context, component, slot string, duration time.Duration, err error)

	// RecordAttributeChange records a reconciled attribute change.
	RecordAttributeChange(ctx context.Context, component, attribute string, accepted bool)

	// RecordSnapshot records a saved state snapshot.
	RecordSnapshot(ctx context.Context, component string, sizeBytes int64)
}

type otelMetrics struct {
	renders      metric.Int64Counter
	renderTime   metric.Float64Histogram
	batchSize    metric.Int64Histogram
	invocations  metric.Int64Counter
	errors       metric.Int64Counter
	attrChanges  metric.Int64Counter
	snapshotSize metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &otelMetrics{}
	var err error

	if m.renders, err = meter.Int64Counter("fcomp.render.count",
		metric.WithDescription("Number of render flushes"),
	); err != nil {
		return nil, err
	}
	if m.renderTime, err = meter.Float64Histogram("fcomp.render.latency_ms",
		metric.WithDescription("Render function latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.batchSize, err = meter.Int64Histogram("fcomp.render.batch_size",
		metric.WithDescription("Patches merged per render flush"),
	); err != nil {
		return nil, err
	}
	if m.invocations, err = meter.Int64Counter("fcomp.lifecycle.invocations",
		metric.WithDescription("Number of lifecycle chain invocations"),
	); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter("fcomp.lifecycle.errors",
		metric.WithDescription("Number of rejected lifecycle chains"),
	); err != nil {
		return nil, err
	}
	if m.attrChanges, err = meter.Int64Counter("fcomp.attribute.changes",
		metric.WithDescription("Number of reconciled attribute changes"),
	); err != nil {
		return nil, err
	}
	if m.snapshotSize, err = meter.Int64Histogram("fcomp.snapshot.size_bytes",
		metric.WithDescription("State snapshot size in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider, or a no-op recorder if the instruments cannot be created.
// Configure the provider with otel.SetMeterProvider before calling this.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordRender(ctx context.Context, component string, duration time.Duration, batchSize int) {
	attrs := metric.WithAttributes(attribute.String("component", component))
	m.renders.Add(ctx, 1, attrs)
	m.renderTime.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.batchSize.Record(ctx, int64(batchSize), attrs)
}

func (m *otelMetrics) RecordLifecycle(ctx context.Context, component, slot string, _ time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("slot", slot),
	)
	m.invocations.Add(ctx, 1, attrs)
	if err != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordAttributeChange(ctx context.Context, component, attr string, accepted bool) {
	m.attrChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("attribute", attr),
		attribute.Bool("accepted", accepted),
	))
}

func (m *otelMetrics) RecordSnapshot(ctx context.Context, component string, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("component", component)))
}
