package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Config captures observability toggles.
type Config struct {
	// Enabled turns on span and datapoint records at debug level.
	Enabled bool
	// Metrics exposes the Prometheus registry.
	Metrics bool
}

// ShutdownFunc allows callers to tear down any observability exporters.
type ShutdownFunc func(context.Context) error

type hooks struct {
	logger *slog.Logger
	cfg    Config
}

var active atomic.Pointer[hooks]

func current() *hooks {
	h := active.Load()
	if h == nil || h.logger == nil || !h.cfg.Enabled {
		return nil
	}
	return h
}

// Setup installs the span logger process-wide. The returned func uninstalls
// it, unless a later Setup replaced it.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	h := &hooks{logger: logger, cfg: cfg}
	active.Store(h)

	if logger != nil {
		logger.InfoContext(ctx, "[Observability] setup",
			slog.Bool("spans", cfg.Enabled),
			slog.Bool("metrics", cfg.Metrics),
		)
	}
	return func(context.Context) error {
		active.CompareAndSwap(h, nil)
		return nil
	}, nil
}
