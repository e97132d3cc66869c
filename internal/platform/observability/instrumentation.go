package observability

import (
	"context"
	"log/slog"
	"time"
)

// StartSpan times an operation and logs both edges at debug level. The
// returned func records the outcome; an error raises the end record to
// error level.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	s := currentSink()
	if s.log == nil {
		return ctx, func(error) {}
	}

	started := time.Now()
	s.log.LogAttrs(ctx, slog.LevelDebug, "span start",
		slog.String("component", component),
		slog.String("op", operation),
	)

	return ctx, func(err error) {
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("op", operation),
			slog.Int64("elapsed_ms", time.Since(started).Milliseconds()),
		}
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", err))
		}
		s.log.LogAttrs(ctx, level, "span end", attrs...)
	}
}

// RecordMetric logs one datapoint. Best effort, never blocks the pipeline.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	s := currentSink()
	if s.log == nil {
		return
	}

	attrs := make([]slog.Attr, 0, len(labels)+2)
	attrs = append(attrs,
		slog.String("metric", name),
		slog.Float64("value", value),
	)
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}
	s.log.LogAttrs(ctx, slog.LevelDebug, "metric", attrs...)
}
