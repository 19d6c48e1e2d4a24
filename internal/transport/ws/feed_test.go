package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscan-server-go/internal/domain/eventbus"
	testhelpers "medscan-server-go/internal/platform/testing"
)

func startFeed(t *testing.T) (*Feed, *eventbus.Bus, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := testhelpers.SetupTestLogger(t)

	bus := eventbus.New(1, 16, logger)
	feed, err := NewFeed(context.Background(), bus, logger)
	require.NoError(t, err)

	engine := gin.New()
	require.NoError(t, feed.Register(context.Background(), engine.Group("/api")))
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	t.Cleanup(feed.Stop)

	return feed, bus, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api" + LivePath
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestFeed_BroadcastsEvents(t *testing.T) {
	feed, bus, url := startFeed(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return feed.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	bus.Publish(eventbus.EventAnalysisCompleted, eventbus.AnalysisEvent{
		Type:       eventbus.EventAnalysisCompleted,
		AnalysisID: "scan-9",
		FileName:   "knee.png",
		Severity:   "mild",
		Confidence: 81,
	})

	for _, conn := range []*websocket.Conn{a, b} {
		var evt eventbus.AnalysisEvent
		readJSON(t, conn, &evt)
		assert.Equal(t, eventbus.EventAnalysisCompleted, evt.Type)
		assert.Equal(t, "scan-9", evt.AnalysisID)
		assert.Equal(t, 81, evt.Confidence)
	}
}

func TestFeed_PingPong(t *testing.T) {
	feed, _, url := startFeed(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	var msg map[string]string
	readJSON(t, conn, &msg)
	assert.Equal(t, "pong", msg["type"])
}

func TestFeed_ClientLeaving(t *testing.T) {
	feed, _, url := startFeed(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool { return feed.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeed_StopDisconnects(t *testing.T) {
	feed, bus, url := startFeed(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	feed.Stop()
	assert.Zero(t, feed.Clients())
	assert.False(t, bus.HasCallback(eventbus.EventAnalysisCompleted))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestFeed_RejectsPlainHTTP(t *testing.T) {
	_, _, url := startFeed(t)

	resp, err := http.Get("http" + strings.TrimPrefix(url, "ws"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
