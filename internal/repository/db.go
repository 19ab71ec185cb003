package repository

import (
	"fmt"
	"time"

	"github.com/ociswap/registry/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB connects to PostgreSQL using database.dsn.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := "host=localhost user=postgres password=postgres dbname=feereg port=5432 sslmode=disable"
	if cfg != nil && cfg.Database.DSN != "" {
		dsn = cfg.Database.DSN
	}
	return Open(postgres.Open(dsn))
}

// Open wraps any gorm dialector with the pool settings used in production.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	return db, nil
}
