package observability

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

type spanKey struct{}

type span struct {
	id     string
	parent string
	name   string
}

// Enabled reports whether span logging has been toggled on.
func Enabled() bool {
	return current() != nil
}

// SpanID returns the id of the innermost span carried by ctx.
func SpanID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(spanKey{}).(*span)
	if !ok {
		return "", false
	}
	return s.id, true
}

// StartSpan opens a span named component.operation as a child of the span in
// ctx, if any. The returned func must be called exactly once with the
// operation's error. When spans are disabled ctx is returned unchanged.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	h := current()
	if h == nil {
		return ctx, func(error) {}
	}

	s := &span{id: uuid.NewString()[:8], name: component + "." + operation}
	if parent, ok := ctx.Value(spanKey{}).(*span); ok {
		s.parent = parent.id
	}
	ctx = context.WithValue(ctx, spanKey{}, s)

	start := time.Now()
	h.logger.LogAttrs(ctx, slog.LevelDebug, "[Observability] span start", s.attrs()...)

	return ctx, func(err error) {
		level := slog.LevelDebug
		attrs := append(s.attrs(), slog.Duration("duration", time.Since(start)))
		if err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", err))
		}
		h.logger.LogAttrs(ctx, level, "[Observability] span end", attrs...)
	}
}

func (s *span) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("span", s.name), slog.String("span_id", s.id)}
	if s.parent != "" {
		attrs = append(attrs, slog.String("parent_id", s.parent))
	}
	return attrs
}

// RecordMetric emits a datapoint as a debug record, tagged with the current
// span. Labels are written in key order.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	h := current()
	if h == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	if id, ok := SpanID(ctx); ok {
		attrs = append(attrs, slog.String("span_id", id))
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}
	h.logger.LogAttrs(ctx, slog.LevelDebug, "[Observability] metric", attrs...)
}
