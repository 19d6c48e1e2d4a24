package eventbus

import (
	"context"

	"medscan-server-go/internal/domain/eventbus/repository"
	"medscan-server-go/internal/platform/logging"
)

// Handlers are the built-in subscribers of analysis events.
type Handlers struct {
	Logger *logging.Logger
	// Audit stores every event when set.
	Audit repository.EventRepository
}

// Handle logs and audits one event.
func (h Handlers) Handle(evt AnalysisEvent) {
	switch evt.Type {
	case EventAnalysisFailed:
		h.Logger.WarnTag(logging.TagEvents, "%s file=%s error=%s", evt.Type, evt.FileName, evt.Error)
	default:
		h.Logger.DebugTag(logging.TagEvents, "%s id=%s file=%s severity=%s",
			evt.Type, evt.AnalysisID, evt.FileName, evt.Severity)
	}

	if h.Audit == nil {
		return
	}
	err := h.Audit.Store(context.Background(), repository.Event{
		EventType:  evt.Type,
		AnalysisID: evt.AnalysisID,
		Data:       evt,
		CreatedAt:  evt.At,
	})
	if err != nil {
		h.Logger.ErrorTag(logging.TagEvents, "audit %s: %v", evt.Type, err)
	}
}

// SetupEventHandlers subscribes h to every analysis topic.
func SetupEventHandlers(bus *Bus, h Handlers) error {
	for _, topic := range AnalysisTopics {
		if err := bus.Subscribe(topic, h.Handle); err != nil {
			return err
		}
	}
	return nil
}
