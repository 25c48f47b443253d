package sim

import (
	"context"
	"log/slog"
	"reflect"
)

// EventLogger is an hook that logs every event before it is handled.
type EventLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewEventLogger returns a new EventLogger which writes into the logger at
// the debug level.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	return &EventLogger{
		logger: logger,
		level:  slog.LevelDebug,
	}
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(ScheduledEvent)
	if !ok {
		return
	}

	if !h.logger.Enabled(context.Background(), h.level) {
		return
	}

	attrs := []slog.Attr{
		slog.Uint64("time", uint64(evt.Time)),
		slog.String("id", evt.ID),
		slog.String("event", reflect.TypeOf(evt.Event).String()),
	}

	if named, ok := evt.Handler.(Named); ok {
		attrs = append(attrs, slog.String("handler", named.Name()))
	}

	h.logger.LogAttrs(context.Background(), h.level, "event", attrs...)
}
