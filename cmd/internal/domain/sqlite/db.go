package sqlite

import (
	"time"

	"agendo/cmd/internal/domain/entity"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Init(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&entity.User{}, &entity.Event{})
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite serializes writers anyway and this avoids
	// SQLITE_BUSY under echo's per-request goroutines.
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
