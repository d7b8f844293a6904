// Package observability provides opt-in observability for partial rendering:
// structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"strings"
	"time"
)

// EnrichLogger adds render context to a logger.
// Returns a new logger with render_id and template fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "render-123", "_Row")
//	enriched.Info("doing work") // includes render_id, template
func EnrichLogger(logger *slog.Logger, renderID, name string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("render_id", renderID),
		slog.String("template", name),
	)
}

// LogRenderStart logs the start of a partial render.
func LogRenderStart(logger *slog.Logger, renderID, name string) {
	if logger == nil {
		return
	}
	logger.Debug("partial render starting",
		slog.String("render_id", renderID),
		slog.String("template", name),
	)
}

// LogRenderComplete logs successful partial render completion.
func LogRenderComplete(logger *slog.Logger, renderID, name string, durationMs float64, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Info("partial render completed",
		slog.String("render_id", renderID),
		slog.String("template", name),
		slog.Float64("duration_ms", durationMs),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogRenderError logs partial render failure.
func LogRenderError(logger *slog.Logger, renderID, name string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("partial render failed",
		slog.String("render_id", renderID),
		slog.String("template", name),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogResolve logs a successful template resolution.
func LogResolve(logger *slog.Logger, name, path string, probes int) {
	if logger == nil {
		return
	}
	logger.Debug("template resolved",
		slog.String("template", name),
		slog.String("path", path),
		slog.Int("probes", probes),
	)
}

// LogResolveMiss logs a failed template resolution with the searched paths.
func LogResolveMiss(logger *slog.Logger, name string, searched []string) {
	if logger == nil {
		return
	}
	logger.Warn("template not found",
		slog.String("template", name),
		slog.String("searched", strings.Join(searched, ", ")),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
