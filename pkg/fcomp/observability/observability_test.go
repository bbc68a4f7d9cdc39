package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// jsonLogger returns a logger writing JSON lines into buf.
func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Nil(t, EnrichLogger(nil, "x-a", "id"))
		LogDefine(nil, "x-a", 1, 2, 3)
		LogDefineError(nil, "x-a", errors.New("x"))
		LogRender(nil, "attributes", 1, 1)
		LogRenderSkipped(nil, 1)
		LogRenderError(nil, 1, errors.New("x"))
		LogLifecycleError(nil, "connected", errors.New("x"))
		LogAttributeRejected(nil, "value")
		LogSnapshot(nil, "k", 10)
		LogSnapshotError(nil, "k", "save", errors.New("x"))
		LogPublishError(nil, "fcomp.render", errors.New("x"))
	})
}

func TestLogHelpers_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := EnrichLogger(jsonLogger(&buf), "x-counter", "el-1")

	LogRender(logger, "attributes", 3, 1.5)
	LogLifecycleError(logger, "connected", errors.New("boom"))
	LogSnapshotError(logger, "el-1", "load", errors.New("disk"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "render flushed", lines[0]["msg"])
	assert.Equal(t, "x-counter", lines[0]["component"])
	assert.Equal(t, "el-1", lines[0]["element_id"])
	assert.Equal(t, "attributes", lines[0]["trigger"])
	assert.EqualValues(t, 3, lines[0]["batch_size"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.Equal(t, "connected", lines[1]["slot"])

	assert.Equal(t, "WARN", lines[2]["level"])
	assert.Equal(t, "load", lines[2]["operation"])
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 1.0)
}

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		_ = provider.Shutdown(context.Background())
	})
	return reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestOtelMetrics(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordRender(ctx, "x-a", 2*time.Millisecond, 3)
	m.RecordRender(ctx, "x-a", time.Millisecond, 1)
	m.RecordLifecycle(ctx, "x-a", "connected", time.Millisecond, nil)
	m.RecordLifecycle(ctx, "x-a", "connected", time.Millisecond, errors.New("x"))
	m.RecordAttributeChange(ctx, "x-a", "value", false)
	m.RecordSnapshot(ctx, "x-a", 128)

	t.Run("render count", func(t *testing.T) {
		got := findMetric(t, reader, "fcomp.render.count")
		require.NotNil(t, got)
		sum := got.Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	})

	t.Run("batch size", func(t *testing.T) {
		got := findMetric(t, reader, "fcomp.render.batch_size")
		require.NotNil(t, got)
		hist := got.Data.(metricdata.Histogram[int64])
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, int64(4), hist.DataPoints[0].Sum)
	})

	t.Run("lifecycle errors", func(t *testing.T) {
		inv := findMetric(t, reader, "fcomp.lifecycle.invocations")
		errs := findMetric(t, reader, "fcomp.lifecycle.errors")
		require.NotNil(t, inv)
		require.NotNil(t, errs)
		assert.Equal(t, int64(2), inv.Data.(metricdata.Sum[int64]).DataPoints[0].Value)
		assert.Equal(t, int64(1), errs.Data.(metricdata.Sum[int64]).DataPoints[0].Value)
	})

	t.Run("attribute rejected", func(t *testing.T) {
		got := findMetric(t, reader, "fcomp.attribute.changes")
		require.NotNil(t, got)
		dp := got.Data.(metricdata.Sum[int64]).DataPoints[0]
		accepted, ok := dp.Attributes.Value(attribute.Key("accepted"))
		require.True(t, ok)
		assert.False(t, accepted.AsBool())
	})

	t.Run("snapshot size", func(t *testing.T) {
		got := findMetric(t, reader, "fcomp.snapshot.size_bytes")
		require.NotNil(t, got)
		assert.Equal(t, int64(128), got.Data.(metricdata.Histogram[int64]).DataPoints[0].Sum)
	})
}

func TestNewMetricsRecorder_NotNoop(t *testing.T) {
	setupMetricsTest(t)
	_, isNoop := NewMetricsRecorder().(NoopMetrics)
	assert.False(t, isNoop)
}

func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestSpanManager(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, define := sm.StartDefineSpan(context.Background(), "x-a")
	_, render := sm.StartRenderSpan(ctx, "x-a", "el-1")
	sm.EndSpanWithError(render, nil)
	_, life := sm.StartLifecycleSpan(ctx, "x-a", "connected", "el-1")
	sm.AddSpanEvent(ctx, "checkpoint", attribute.Int("n", 1))
	sm.EndSpanWithError(life, errors.New("rejected"))
	sm.EndSpanWithError(define, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	byName := map[string]tracetest.SpanStub{}
	for _, s := range spans {
		byName[s.Name] = s
	}

	require.Contains(t, byName, "fcomp.render")
	require.Contains(t, byName, "fcomp.lifecycle.connected")
	require.Contains(t, byName, "fcomp.define")

	assert.Equal(t, codes.Ok, byName["fcomp.render"].Status.Code)
	assert.Equal(t, codes.Error, byName["fcomp.lifecycle.connected"].Status.Code)
	assert.Equal(t, byName["fcomp.define"].SpanContext.SpanID(), byName["fcomp.render"].Parent.SpanID())
	assert.Len(t, byName["fcomp.define"].Events, 1)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var m MetricsRecorder = NoopMetrics{}
	var s SpanManager = NoopSpanManager{}

	assert.NotPanics(t, func() {
		m.RecordRender(ctx, "x", time.Second, 1)
		m.RecordLifecycle(ctx, "x", "connected", time.Second, errors.New("x"))
		m.RecordAttributeChange(ctx, "x", "a", true)
		m.RecordSnapshot(ctx, "x", 1)

		got, span := s.StartRenderSpan(ctx, "x", "id")
		assert.Equal(t, ctx, got)
		s.AddSpanEvent(ctx, "e")
		s.EndSpanWithError(span, errors.New("x"))
		EndSpanWithError(nil, nil)
	})
}
