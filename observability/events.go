package observability

import (
	"log/slog"

	"namemarket/core/events"
	"namemarket/core/types"
)

type payloadEvent interface {
	Event() *types.Event
}

// EventLogger is an events.Emitter that writes every committed market event
// to the structured log, giving operators a notification trail without an
// external indexer.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger wraps the supplied logger; a nil logger uses the default.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// Emit implements events.Emitter.
func (l *EventLogger) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	attrs := []any{slog.String("event", evt.EventType())}
	if payload, ok := evt.(payloadEvent); ok {
		if e := payload.Event(); e != nil {
			for k, v := range e.Attributes {
				attrs = append(attrs, slog.String(k, v))
			}
		}
	}
	l.logger.Info("market event", attrs...)
}
