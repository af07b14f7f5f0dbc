package db

import (
	"github.com/glebarez/sqlite"
	"github.com/oakmont/xerosync/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite database and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(&models.Setting{}, &models.OrderSync{}, &models.OrderNote{}); err != nil {
		return nil, err
	}

	return database, nil
}
