// Package observability provides logging, metrics and tracing for fcomp
// components.
//
// Logging uses log/slog. Metrics and tracing use OpenTelemetry through the
// global providers. Every feature has a no-op implementation, and every log
// helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds component and element fields to a logger.
func EnrichLogger(logger *slog.Logger, component, elementID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("component", component),
		slog.String("element_id", elementID),
	)
}

// LogDefine logs a completed component type definition.
func LogDefine(logger *slog.Logger, component string, observed, extensions int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("component defined",
		slog.String("component", component),
		slog.Int("observed_attributes", observed),
		slog.Int("extensions", extensions),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDefineError logs a failed definition.
func LogDefineError(logger *slog.Logger, component string, err error) {
	if logger == nil {
		return
	}
	logger.Error("component definition failed",
		slog.String("component", component),
		slog.String("error", err.Error()),
	)
}

// LogRender logs a render flush.
func LogRender(logger *slog.Logger, meta string, batchSize int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("render flushed",
		slog.String("trigger", meta),
		slog.Int("batch_size", batchSize),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRenderError logs a render function that panicked. Its batch is lost.
func LogRenderError(logger *slog.Logger, batchSize int, err error) {
	if logger == nil {
		return
	}
	logger.Error("render failed",
		slog.Int("batch_size", batchSize),
		slog.String("error", err.Error()),
	)
}

// LogRenderSkipped logs a flush dropped because its element disconnected.
func LogRenderSkipped(logger *slog.Logger, batchSize int) {
	if logger == nil {
		return
	}
	logger.Debug("render skipped after disconnect",
		slog.Int("batch_size", batchSize),
	)
}

// LogLifecycleError logs a rejected lifecycle chain.
func LogLifecycleError(logger *slog.Logger, slot string, err error) {
	if logger == nil {
		return
	}
	logger.Error("lifecycle chain failed",
		slog.String("slot", slot),
		slog.String("error", err.Error()),
	)
}

// LogAttributeRejected logs an attribute change the validator refused.
func LogAttributeRejected(logger *slog.Logger, attribute string) {
	if logger == nil {
		return
	}
	logger.Debug("attribute change rejected",
		slog.String("attribute", attribute),
	)
}

// LogSnapshot logs a saved state snapshot.
func LogSnapshot(logger *slog.Logger, key string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot saved",
		slog.String("key", key),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs a snapshot failure (non-fatal by default).
func LogSnapshotError(logger *slog.Logger, key, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("key", key),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogPublishError logs a failed event bus publication.
func LogPublishError(logger *slog.Logger, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event publish failed",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// TimedOperation returns a function reporting the elapsed milliseconds
// since TimedOperation was called.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
