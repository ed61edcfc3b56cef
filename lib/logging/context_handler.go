// Package logging carries per-request log attributes through the context, so
// every record written while handling a negotiation mentions the task and
// actor it belongs to.
package logging

import (
	"context"
	"log/slog"
	"slices"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const slogFields ctxKey = "slog_fields"

// ContextHandler decorates a slog.Handler with the attributes stored in the
// context by AppendCtx, plus the trace and span IDs of the active span.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

// AppendCtx returns a context carrying the attribute for ContextHandler to
// pick up. An attribute with the same key replaces the earlier one. The
// parent's attribute slice is copied, so contexts derived from the same parent
// do not see each other's attributes.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	attrs, _ := parent.Value(slogFields).([]slog.Attr)
	attrs = slices.DeleteFunc(slices.Clone(attrs), func(existing slog.Attr) bool {
		return existing.Key == attr.Key
	})
	return context.WithValue(parent, slogFields, append(attrs, attr))
}

// SlogLevel maps a zerolog level to the corresponding slog level, so both
// loggers honor the same configured level.
func SlogLevel(level zerolog.Level) slog.Level {
	switch {
	case level <= zerolog.DebugLevel:
		return slog.LevelDebug
	case level == zerolog.InfoLevel:
		return slog.LevelInfo
	case level == zerolog.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
