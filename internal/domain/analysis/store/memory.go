package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"medscan-server-go/internal/domain/analysis"
)

type memoryEntry struct {
	result  *analysis.AnalysisResult
	savedAt time.Time
}

// MemoryStore keeps results in process memory. Expired entries are invisible
// immediately and physically dropped by CleanupExpired.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore builds an empty store; ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.savedAt) >= m.ttl
}

func (m *MemoryStore) Save(_ context.Context, result *analysis.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[result.ID] = memoryEntry{result: result, savedAt: m.now()}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*analysis.AnalysisResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || m.expired(e, m.now()) {
		return nil, errNotFound("store.get", id)
	}
	return e.result, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*analysis.AnalysisResult, error) {
	m.mu.RLock()
	now := m.now()
	out := make([]*analysis.AnalysisResult, 0, len(m.entries))
	for _, e := range m.entries {
		if !m.expired(e, now) {
			out = append(out, e.result)
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || m.expired(e, m.now()) {
		return errNotFound("store.remove", id)
	}
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) CleanupExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (analysis.Stats, error) {
	list, err := m.List(ctx)
	if err != nil {
		return analysis.Stats{}, err
	}
	return analysis.Summarize(list), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}

// sortNewestFirst orders by upload time, then id for equal timestamps.
func sortNewestFirst(list []*analysis.AnalysisResult) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UploadedAt.Equal(list[j].UploadedAt) {
			return list[i].UploadedAt.After(list[j].UploadedAt)
		}
		return list[i].ID > list[j].ID
	})
}
