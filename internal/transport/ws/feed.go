package ws

import (
	"context"

	"github.com/gin-gonic/gin"

	"medscan-server-go/internal/domain/eventbus"
	"medscan-server-go/internal/platform/logging"
)

// LivePath is mounted under the API group.
const LivePath = "/analyses/live"

// Feed streams analysis lifecycle events to websocket clients.
type Feed struct {
	hub    *Hub
	router *Router
	bus    *eventbus.Bus
	logger *logging.Logger
	// EventBus matches handlers by code pointer, so Stop also detaches any
	// other Feed on the same bus. Keep one Feed per bus.
	deliver func(eventbus.AnalysisEvent)
}

// NewFeed subscribes a hub to every analysis topic of bus.
func NewFeed(ctx context.Context, bus *eventbus.Bus, logger *logging.Logger) (*Feed, error) {
	hub := NewHub(logger)
	f := &Feed{
		hub:     hub,
		router:  NewRouter(hub, logger, RouterOptions{Base: ctx}),
		bus:     bus,
		logger:  logger,
		deliver: func(evt eventbus.AnalysisEvent) { hub.Broadcast(evt) },
	}
	for _, topic := range eventbus.AnalysisTopics {
		if err := bus.Subscribe(topic, f.deliver); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Register mounts the upgrade endpoint on router.
func (f *Feed) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET(LivePath, gin.WrapF(f.router.Handle))
	return nil
}

// Clients is the number of connected clients.
func (f *Feed) Clients() int {
	return f.hub.Count()
}

// Stop detaches from the bus and disconnects every client.
func (f *Feed) Stop() {
	for _, topic := range eventbus.AnalysisTopics {
		_ = f.bus.Unsubscribe(topic, f.deliver)
	}
	f.hub.CloseAll(ErrSessionShutdown)
}
