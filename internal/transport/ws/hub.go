package ws

import (
	"encoding/json"
	"sync"

	"medscan-server-go/internal/domain/eventbus"
	"medscan-server-go/internal/platform/logging"
)

// Hub tracks the live feed sessions and fans events out to them.
type Hub struct {
	logger   *logging.Logger
	sessions sync.Map // map[string]*Session
}

// NewHub builds a fresh session hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger: logger,
	}
}

// Register adds a new session to the hub.
func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	h.sessions.Store(session.ID(), session)
}

// Unregister removes the session from the hub.
func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.sessions.Delete(id)
}

// Broadcast sends evt to every session. It is subscribed to the analysis
// topics of the event bus.
func (h *Hub) Broadcast(evt eventbus.AnalysisEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.ErrorTag(logging.TagHTTP, "encode live event %s: %v", evt.Type, err)
		return
	}

	h.sessions.Range(func(_, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Send(data)
		}
		return true
	})
}

// CloseAll terminates all active sessions.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close(reason)
		}
		h.sessions.Delete(key)
		return true
	})
}

// Count is the number of connected clients.
func (h *Hub) Count() int {
	n := 0
	h.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
