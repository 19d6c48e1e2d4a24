package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"medscan-server-go/internal/platform/logging"
	"medscan-server-go/internal/platform/observability"
)

// Router upgrades HTTP requests to live feed sessions.
type Router struct {
	hub    *Hub
	logger *logging.Logger

	upgrader         *websocket.Upgrader
	handshakeTimeout time.Duration
	base             context.Context
}

// RouterOptions configures the websocket router.
type RouterOptions struct {
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
	// Base bounds every session; cancelling it ends them all.
	Base context.Context
}

// NewRouter constructs a websocket router.
func NewRouter(hub *Hub, logger *logging.Logger, opts RouterOptions) *Router {
	upgrader := &websocket.Upgrader{
		HandshakeTimeout: opts.HandshakeTimeout,
		CheckOrigin:      opts.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := opts.Base
	if base == nil {
		base = context.Background()
	}

	return &Router{
		hub:              hub,
		logger:           logger,
		upgrader:         upgrader,
		handshakeTimeout: timeout,
		base:             base,
	}
}

// Handle upgrades the HTTP connection and starts a new session.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	handshakeCtx, cancel := context.WithTimeoutCause(req.Context(), r.handshakeTimeout, ErrHandshakeTimeout)
	defer cancel()

	_, spanEnd := observability.StartSpan(handshakeCtx, "transport.websocket", "upgrade")
	conn, err := r.upgrader.Upgrade(w, req.WithContext(handshakeCtx), nil)
	spanEnd(err)
	if err != nil {
		// the upgrader has already written the HTTP error
		r.logger.WarnTag(logging.TagHTTP, "live feed handshake failed: %v", err)
		return
	}

	id := req.URL.Query().Get("client-id")
	if id == "" {
		id = uuid.NewString()
	}
	session := NewSession(r.base, NewConnection(id, conn), r.logger)
	r.hub.Register(session)
	r.logger.InfoTag(logging.TagHTTP, "live feed client %s connected (%d total)", id, r.hub.Count())

	go session.Run(func(runErr error) {
		r.hub.Unregister(session.ID())
		if runErr != nil {
			r.logger.WarnTag(logging.TagHTTP, "live feed client %s dropped: %v", id, runErr)
		} else {
			r.logger.InfoTag(logging.TagHTTP, "live feed client %s left", id)
		}
	})
}
