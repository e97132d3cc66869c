package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config toggles the slog-backed span and metric sinks. Off by default; the
// bootstrap flips it on for debug log levels.
type Config struct {
	Enabled bool
}

// ShutdownFunc tears down any observability exporters.
type ShutdownFunc func(context.Context) error

type sink struct {
	log     *slog.Logger
	enabled bool
}

var (
	sinkMu sync.RWMutex
	active sink
)

func currentSink() sink {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return active
}

// Enabled reports whether observability has been toggled on.
func Enabled() bool {
	return currentSink().enabled
}

// Setup installs the process logger behind the span/metric helpers. The
// returned shutdown is a no-op today; an exporter would flush here.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	sinkMu.Lock()
	active = sink{log: logger, enabled: cfg.Enabled}
	sinkMu.Unlock()

	if logger != nil {
		state := "disabled"
		if cfg.Enabled {
			state = "enabled"
		}
		logger.InfoContext(ctx, "observability "+state)
	}
	return func(context.Context) error { return nil }, nil
}
