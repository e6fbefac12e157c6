package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

// eventLogCapacity bounds the retained events; older ones are dropped.
const eventLogCapacity = 1000

// EventLog writes events to the logger and keeps the most recent ones for
// inspection.
type EventLog struct {
	mu     sync.Mutex
	log    *slog.Logger
	events []domain.Event
}

func NewEventLog(log *slog.Logger) *EventLog {
	return &EventLog{log: log}
}

func (e *EventLog) Publish(_ context.Context, ev domain.Event) error {
	e.mu.Lock()
	e.events = append(e.events, ev)
	if len(e.events) > eventLogCapacity {
		e.events = slices.Delete(e.events, 0, len(e.events)-eventLogCapacity)
	}
	e.mu.Unlock()
	if e.log != nil {
		e.log.Info("event", "type", ev.Type, "subject", ev.SubjectID, "actor", ev.ActorID)
	}
	return nil
}

func (e *EventLog) Events() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.events)
}

// Types lists the recorded event types in publish order.
func (e *EventLog) Types() []domain.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.EventType, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}
