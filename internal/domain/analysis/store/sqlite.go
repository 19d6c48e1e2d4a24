package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medscan-server-go/internal/domain/analysis"
	"medscan-server-go/internal/platform/storage"
)

// SQLiteStore persists results in the analyses table. The full result is
// kept as JSON; the other columns serve filtering and expiry.
type SQLiteStore struct {
	db     *gorm.DB
	ttl    time.Duration
	now    func() time.Time
	ownsDB bool
}

// NewSQLiteStore uses an open database. Close does not close db.
func NewSQLiteStore(db *gorm.DB, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}
}

// OpenSQLiteStore opens dsn, migrates it and owns the handle.
func OpenSQLiteStore(dsn string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := storage.Open(dsn)
	if err != nil {
		return nil, err
	}
	s := NewSQLiteStore(db, ttl)
	s.ownsDB = true
	return s, nil
}

// DB exposes the handle so the event audit log can share it.
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

func (s *SQLiteStore) Save(ctx context.Context, result *analysis.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errStorage("store.save", "marshal result", err)
	}

	rec := storage.AnalysisRecord{
		ID:         result.ID,
		FileName:   result.File.Name,
		Status:     result.Status(),
		Severity:   string(result.Severity),
		Confidence: result.Confidence,
		Payload:    payload,
		UploadedAt: result.UploadedAt,
	}
	if result.ScanType != nil {
		v := string(*result.ScanType)
		rec.ScanType = &v
	}
	if result.BodyPart != nil {
		v := string(*result.BodyPart)
		rec.BodyPart = &v
	}
	if s.ttl > 0 {
		exp := s.now().UTC().Add(s.ttl)
		rec.ExpiresAt = &exp
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	if err != nil {
		return errStorage("store.save", "insert analysis", err)
	}
	return nil
}

func (s *SQLiteStore) live(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("expires_at IS NULL OR expires_at > ?", s.now().UTC())
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*analysis.AnalysisResult, error) {
	var rec storage.AnalysisRecord
	err := s.live(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound("store.get", id)
	}
	if err != nil {
		return nil, errStorage("store.get", "query analysis", err)
	}
	return decodeRecord(rec)
}

func (s *SQLiteStore) List(ctx context.Context) ([]*analysis.AnalysisResult, error) {
	var recs []storage.AnalysisRecord
	if err := s.live(ctx).Order("uploaded_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, errStorage("store.list", "query analyses", err)
	}

	out := make([]*analysis.AnalysisResult, 0, len(recs))
	for _, rec := range recs {
		r, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	res := s.live(ctx).Where("id = ?", id).Delete(&storage.AnalysisRecord{})
	if res.Error != nil {
		return errStorage("store.remove", "delete analysis", res.Error)
	}
	if res.RowsAffected == 0 {
		return errNotFound("store.remove", id)
	}
	return nil
}

func (s *SQLiteStore) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC()).
		Delete(&storage.AnalysisRecord{})
	if res.Error != nil {
		return 0, errStorage("store.cleanup", "delete expired", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (analysis.Stats, error) {
	list, err := s.List(ctx)
	if err != nil {
		return analysis.Stats{}, err
	}
	return analysis.Summarize(list), nil
}

func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return storage.Close(s.db)
}

func decodeRecord(rec storage.AnalysisRecord) (*analysis.AnalysisResult, error) {
	var r analysis.AnalysisResult
	if err := json.Unmarshal(rec.Payload, &r); err != nil {
		return nil, errStorage("store.decode", "corrupt payload for "+rec.ID, err)
	}
	return &r, nil
}
