package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"medscan-server-go/internal/domain/eventbus/repository"
	platformerrors "medscan-server-go/internal/platform/errors"
	"medscan-server-go/internal/platform/storage"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository stores events in the analysis_events table.
func NewEventRepository(db *gorm.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Store(ctx context.Context, event repository.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "event.store", "marshal event data", err)
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	row := &storage.AnalysisEvent{
		EventType:  event.EventType,
		AnalysisID: event.AnalysisID,
		Data:       data,
		CreatedAt:  createdAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "event.store", "insert event", err)
	}
	return nil
}

func (r *eventRepository) FindByAnalysisID(ctx context.Context, analysisID string) ([]repository.Event, error) {
	var rows []storage.AnalysisEvent
	if err := r.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "event.find_analysis", "query events", err)
	}
	return convert(rows), nil
}

func (r *eventRepository) FindByEventType(ctx context.Context, eventType string, limit int) ([]repository.Event, error) {
	query := r.db.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []storage.AnalysisEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "event.find_type", "query events", err)
	}
	return convert(rows), nil
}

func (r *eventRepository) DeleteOldEvents(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&storage.AnalysisEvent{})
	if res.Error != nil {
		return 0, platformerrors.Wrap(platformerrors.KindStorage, "event.delete_old", "delete events", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *eventRepository) Stats(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		EventType string
		Count     int64
	}
	if err := r.db.WithContext(ctx).
		Model(&storage.AnalysisEvent{}).
		Select("event_type, COUNT(*) AS count").
		Group("event_type").
		Scan(&rows).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "event.stats", "count events", err)
	}

	stats := make(map[string]int64, len(rows))
	for _, row := range rows {
		stats[row.EventType] = row.Count
	}
	return stats, nil
}

func convert(rows []storage.AnalysisEvent) []repository.Event {
	events := make([]repository.Event, 0, len(rows))
	for _, row := range rows {
		var data map[string]any
		if len(row.Data) > 0 {
			_ = json.Unmarshal(row.Data, &data)
		}
		events = append(events, repository.Event{
			ID:         row.ID,
			EventType:  row.EventType,
			AnalysisID: row.AnalysisID,
			Data:       data,
			CreatedAt:  row.CreatedAt,
		})
	}
	return events
}
