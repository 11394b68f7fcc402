package store

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	adminmodel "github.com/lumichat/backend/internal/model/admin"
	chatmodel "github.com/lumichat/backend/internal/model/chat"
)

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&chatmodel.Session{},
		&chatmodel.Message{},
		&adminmodel.Admin{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
