package storage

import (
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	platformerrors "medscan-server-go/internal/platform/errors"
	"medscan-server-go/internal/platform/storage/migrations"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

// Open connects to the SQLite database at dsn, creating its directory when
// needed, and applies all schema migrations.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	if !isMemory(dsn) {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open", "create data directory", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open", "open database", err)
	}
	if isMemory(dsn) {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open", "access pool", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if _, err := NewMigrationManager(db, Migrations()...).RunMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrations lists the schema history in application order.
func Migrations() []Migration {
	return []Migration{
		&migrations.Migration001Analyses{},
		&migrations.Migration002AnalysisEvents{},
	}
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isMemory(dsn string) bool {
	return dsn == MemoryDSN || strings.Contains(dsn, "mode=memory")
}
