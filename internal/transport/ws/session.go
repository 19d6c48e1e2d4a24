package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"medscan-server-go/internal/platform/logging"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 64
)

type clientMessage struct {
	Type string `json:"type"`
}

// Session is one subscriber of the live feed. Outgoing frames are queued
// and written by a single goroutine; a client that lets the queue fill up is
// disconnected.
type Session struct {
	id     string
	conn   *Connection
	logger *logging.Logger
	send   chan []byte

	ctx    context.Context
	cancel context.CancelCauseFunc

	closed atomic.Bool
}

// NewSession constructs a managed websocket session.
func NewSession(parent context.Context, conn *Connection, logger *logging.Logger) *Session {
	sessionCtx, cancel := context.WithCancelCause(parent)
	return &Session{
		id:     conn.ID(),
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		ctx:    sessionCtx,
		cancel: cancel,
	}
}

// Context returns the session context.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) ID() string {
	return s.id
}

// Send queues a text frame without blocking.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.send <- data:
	default:
		s.Close(ErrSlowConsumer)
	}
}

// Run pumps frames both ways until the client leaves or the session is
// closed, then invokes onDone with the cause.
func (s *Session) Run(onDone func(error)) {
	go s.writeLoop()

	err := s.readLoop()
	s.Close(err)
	if onDone != nil {
		cause := context.Cause(s.ctx)
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			cause = nil
		}
		onDone(cause)
	}
}

func (s *Session) readLoop() error {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.DebugTag(logging.TagHTTP, "live feed %s sent non-json frame", s.id)
			continue
		}
		if msg.Type == "ping" {
			s.Send([]byte(`{"type":"pong"}`))
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, data, writeTimeout); err != nil {
				s.Close(err)
				return
			}
		}
	}
}

// Close terminates the session; the first reason wins.
func (s *Session) Close(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.cancel(reason)
	if err := s.conn.Close(); err != nil {
		s.logger.WarnTag(logging.TagHTTP, "live feed %s close failed: %v", s.id, err)
	}
}
