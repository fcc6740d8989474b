package db

import (
	"fmt"
	"strings"

	"mirror-sync-go/internal/config"
	"mirror-sync-go/pkg/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// NewSQLite opens a pure-Go SQLite database at path. ":memory:" gives a
// private in-memory database bound to a single connection.
func NewSQLite(path string, log logger.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("open db: sqlite path is empty")
	}

	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	dsn := path
	if !inMemory && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	log.Info("db: opening sqlite", "path", path)
	gormDB, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	cfg := config.DBConfig{MaxOpenConns: 4, MaxIdleConns: 4}
	if inMemory {
		cfg = config.DBConfig{MaxOpenConns: 1, MaxIdleConns: 1}
	}
	if err := configurePool(gormDB, cfg); err != nil {
		return nil, err
	}
	if inMemory {
		// the database lives only as long as its single connection
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("db handle: %w", err)
		}
		sqlDB.SetConnMaxLifetime(0)
	}

	log.Info("db: connected", "driver", config.DriverSQLite)
	return gormDB, nil
}
