package eventbus

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medscan-server-go/internal/domain/eventbus/repository"
	"medscan-server-go/internal/platform/logging"
)

func TestBus_PublishIsSynchronous(t *testing.T) {
	bus := New(1, 1, logging.NewDiscard(io.Discard))

	var got []string
	require.NoError(t, bus.Subscribe(EventAnalysisCompleted, func(evt AnalysisEvent) {
		got = append(got, evt.AnalysisID)
	}))

	bus.Publish(EventAnalysisCompleted, AnalysisEvent{AnalysisID: "a1"})
	bus.Publish(EventAnalysisCompleted, AnalysisEvent{AnalysisID: "a2"})
	assert.Equal(t, []string{"a1", "a2"}, got)
	assert.True(t, bus.HasCallback(EventAnalysisCompleted))
	assert.False(t, bus.HasCallback(EventAnalysisRemoved))
}

func TestBus_PublishAsyncDeliversAll(t *testing.T) {
	bus := New(3, 64, logging.NewDiscard(io.Discard))
	bus.Start()
	defer bus.Stop()

	var count atomic.Int32
	require.NoError(t, bus.Subscribe(EventAnalysisInvalid, func(AnalysisEvent) {
		count.Add(1)
	}))

	for i := 0; i < 50; i++ {
		bus.PublishAsync(EventAnalysisInvalid, AnalysisEvent{})
	}
	bus.Flush()
	assert.Equal(t, int32(50), count.Load())
	assert.Zero(t, bus.Dropped())
}

func TestBus_DropsWhenQueueFull(t *testing.T) {
	var buf bytes.Buffer
	// workers are never started so the queue only fills
	bus := New(1, 2, logging.NewDiscard(&buf))

	for i := 0; i < 5; i++ {
		bus.PublishAsync(EventAnalysisCompleted, AnalysisEvent{})
	}
	assert.Equal(t, int64(3), bus.Dropped())
	assert.Contains(t, buf.String(), "queue full")

	var count atomic.Int32
	require.NoError(t, bus.Subscribe(EventAnalysisCompleted, func(AnalysisEvent) { count.Add(1) }))
	bus.Start()
	bus.Flush()
	bus.Stop()
	assert.Equal(t, int32(2), count.Load())
}

func TestBus_StopDrainsQueue(t *testing.T) {
	bus := New(1, 16, logging.NewDiscard(io.Discard))

	var count atomic.Int32
	require.NoError(t, bus.Subscribe(EventAnalysisRemoved, func(AnalysisEvent) { count.Add(1) }))
	for i := 0; i < 10; i++ {
		bus.PublishAsync(EventAnalysisRemoved, AnalysisEvent{})
	}

	bus.Start()
	bus.Stop()
	bus.Stop()
	assert.Equal(t, int32(10), count.Load())
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	var buf bytes.Buffer
	bus := New(1, 4, logging.NewDiscard(&buf))
	bus.Start()
	defer bus.Stop()

	require.NoError(t, bus.Subscribe(EventAnalysisFailed, func(AnalysisEvent) {
		panic("boom")
	}))
	bus.PublishAsync(EventAnalysisFailed, AnalysisEvent{})
	bus.Flush()

	assert.Contains(t, buf.String(), "handler panic topic=analysis:failed: boom")
}

type memoryAudit struct {
	mu     sync.Mutex
	events []repository.Event
	err    error
}

func (m *memoryAudit) Store(_ context.Context, event repository.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *memoryAudit) FindByAnalysisID(context.Context, string) ([]repository.Event, error) {
	return nil, nil
}

func (m *memoryAudit) FindByEventType(context.Context, string, int) ([]repository.Event, error) {
	return nil, nil
}

func (m *memoryAudit) DeleteOldEvents(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *memoryAudit) Stats(context.Context) (map[string]int64, error) { return nil, nil }

func TestSetupEventHandlers_AuditsEveryTopic(t *testing.T) {
	bus := New(1, 8, logging.NewDiscard(io.Discard))
	audit := &memoryAudit{}
	require.NoError(t, SetupEventHandlers(bus, Handlers{Logger: logging.NewDiscard(io.Discard), Audit: audit}))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, topic := range AnalysisTopics {
		bus.Publish(topic, AnalysisEvent{Type: topic, AnalysisID: "id-1", At: at})
	}

	require.Len(t, audit.events, len(AnalysisTopics))
	for i, topic := range AnalysisTopics {
		assert.Equal(t, topic, audit.events[i].EventType)
		assert.Equal(t, "id-1", audit.events[i].AnalysisID)
		assert.Equal(t, at, audit.events[i].CreatedAt)
	}
}

func TestHandlers_LogsAuditFailure(t *testing.T) {
	var buf bytes.Buffer
	h := Handlers{Logger: logging.NewDiscard(&buf), Audit: &memoryAudit{err: assert.AnError}}

	h.Handle(AnalysisEvent{Type: EventAnalysisFailed, FileName: "x.png", Error: "decode"})

	out := buf.String()
	assert.Contains(t, out, "analysis:failed file=x.png error=decode")
	assert.Contains(t, out, "audit analysis:failed")
}

func TestBus_PublishAsyncAfterStopIsDropped(t *testing.T) {
	var buf bytes.Buffer
	bus := New(1, 4, logging.NewDiscard(&buf))
	bus.Start()

	var count atomic.Int32
	require.NoError(t, bus.Subscribe(EventAnalysisCompleted, func(AnalysisEvent) { count.Add(1) }))
	bus.Stop()

	bus.PublishAsync(EventAnalysisCompleted, AnalysisEvent{AnalysisID: "late"})

	flushed := make(chan struct{})
	go func() {
		bus.Flush()
		close(flushed)
	}()
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("Flush blocked on an event published after Stop")
	}
	assert.Zero(t, count.Load())
	assert.Equal(t, int64(1), bus.Dropped())
	assert.Contains(t, buf.String(), "bus stopped, dropped analysis:completed")
}
