package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	platformerrors "medscan-server-go/internal/platform/errors"
)

// Migration is one versioned schema change.
type Migration interface {
	Version() string
	Description() string
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// MigrationRecord marks a migration as applied.
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationManager applies registered migrations in order, each in its own
// transaction.
type MigrationManager struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrationManager(db *gorm.DB, migrations ...Migration) *MigrationManager {
	return &MigrationManager{db: db, migrations: migrations}
}

func (m *MigrationManager) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)
}

// RunMigrations applies every migration not yet recorded. It returns the
// versions applied by this call.
func (m *MigrationManager) RunMigrations() ([]string, error) {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "migration.create_table", "create migration table", err)
	}

	var appliedVersions []string
	if err := m.db.Model(&MigrationRecord{}).Pluck("version", &appliedVersions).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "migration.applied", "list applied migrations", err)
	}
	applied := make(map[string]bool, len(appliedVersions))
	for _, v := range appliedVersions {
		applied[v] = true
	}

	var ran []string
	for _, migration := range m.migrations {
		if applied[migration.Version()] {
			continue
		}
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return platformerrors.Wrap(platformerrors.KindStorage, "migration.up",
					fmt.Sprintf("run migration %s", migration.Version()), err)
			}
			record := &MigrationRecord{
				Version:   migration.Version(),
				Name:      migration.Description(),
				AppliedAt: time.Now().UTC(),
			}
			if err := tx.Create(record).Error; err != nil {
				return platformerrors.Wrap(platformerrors.KindStorage, "migration.record", "record migration", err)
			}
			return nil
		})
		if err != nil {
			return ran, err
		}
		ran = append(ran, migration.Version())
	}
	return ran, nil
}

// RollbackMigration reverts one applied migration.
func (m *MigrationManager) RollbackMigration(version string) error {
	var record MigrationRecord
	if err := m.db.Where("version = ?", version).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return platformerrors.New(platformerrors.KindNotFound, "migration.rollback", fmt.Sprintf("migration %s not applied", version))
		}
		return platformerrors.Wrap(platformerrors.KindStorage, "migration.rollback", "find migration record", err)
	}

	var target Migration
	for _, migration := range m.migrations {
		if migration.Version() == version {
			target = migration
			break
		}
	}
	if target == nil {
		return platformerrors.New(platformerrors.KindStorage, "migration.rollback", fmt.Sprintf("migration %s not registered", version))
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := target.Down(tx); err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, "migration.down", fmt.Sprintf("rollback migration %s", version), err)
		}
		return tx.Delete(&record).Error
	})
}

// History lists applied migrations, newest first.
func (m *MigrationManager) History() ([]MigrationRecord, error) {
	var records []MigrationRecord
	if err := m.db.Order("applied_at DESC, id DESC").Find(&records).Error; err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "migration.history", "list migration history", err)
	}
	return records, nil
}
