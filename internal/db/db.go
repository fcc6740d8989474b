package db

import (
	"fmt"

	"mirror-sync-go/internal/config"
	"mirror-sync-go/pkg/logger"

	"gorm.io/gorm"
)

// Open connects to the configured SQL backend and applies migrations. It
// returns nil for DB_DRIVER=memory.
func Open(cfg config.DBConfig, log logger.Logger) (*gorm.DB, error) {
	var (
		gormDB *gorm.DB
		err    error
	)

	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("db: using in-memory store, records are lost on exit")
		return nil, nil
	case config.DriverSQLite:
		gormDB, err = NewSQLite(cfg.SQLitePath, log)
	case config.DriverPostgres, "":
		gormDB, err = NewPostgres(cfg, log)
	default:
		return nil, fmt.Errorf("open db: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(gormDB); err != nil {
		Close(gormDB)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("db: migrations applied")
	return gormDB, nil
}

func Close(gormDB *gorm.DB) error {
	if gormDB == nil {
		return nil
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
