package repository

import (
	"context"
	"time"
)

// EventRepository persists the audit trail of analysis events.
type EventRepository interface {
	Store(ctx context.Context, event Event) error
	// FindByAnalysisID returns the events of one analysis, oldest first.
	FindByAnalysisID(ctx context.Context, analysisID string) ([]Event, error)
	// FindByEventType returns the newest events of a type; limit <= 0 means all.
	FindByEventType(ctx context.Context, eventType string, limit int) ([]Event, error)
	DeleteOldEvents(ctx context.Context, before time.Time) (int64, error)
	// Stats counts stored events per type.
	Stats(ctx context.Context) (map[string]int64, error)
}

// Event is one audit row.
type Event struct {
	ID         uint
	EventType  string
	AnalysisID string
	Data       any
	CreatedAt  time.Time
}
