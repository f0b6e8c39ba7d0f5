package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"AttendBot/internal/model"
	"AttendBot/pkg/logger"
)

// Migrate 建表，(user_id, work_date) 的唯一索引由模型 tag 声明
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&model.AttendanceRecord{},
		&model.Holiday{},
	)
	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
