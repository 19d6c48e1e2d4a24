package storage

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisRecord persists one analysis result. The full result travels as
// JSON in Payload; the scalar columns exist for filtering and expiry.
type AnalysisRecord struct {
	ID         string         `gorm:"primaryKey;size:64"`
	FileName   string         `gorm:"size:512;not null"`
	Status     string         `gorm:"size:32;index;not null"`
	ScanType   *string        `gorm:"size:64"`
	BodyPart   *string        `gorm:"size:64"`
	Severity   string         `gorm:"size:32;index;not null"`
	Confidence int            `gorm:"not null"`
	Payload    datatypes.JSON `gorm:"type:json;not null"`
	UploadedAt time.Time      `gorm:"index;not null"`
	ExpiresAt  *time.Time     `gorm:"index"`
}

func (AnalysisRecord) TableName() string { return "analyses" }

// AnalysisEvent is an audit row written for every published analysis event.
type AnalysisEvent struct {
	ID         uint           `gorm:"primaryKey"`
	EventType  string         `gorm:"size:64;index;not null"`
	AnalysisID string         `gorm:"size:64;index"`
	Data       datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"not null"`
}

func (AnalysisEvent) TableName() string { return "analysis_events" }
