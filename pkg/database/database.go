package database

import (
	"cofq_backend/internal/config"
	"cofq_backend/internal/model"
	"cofq_backend/pkg/logger"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "mysql" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

func dialector(cfg *config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == "sqlite" {
		path := cfg.Path
		if path == "" {
			path = "cofq.db"
		}
		return sqlite.Open(path)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)
	return mysql.Open(dsn)
}

// Migrate 建表并写入默认数据
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Topic{},
		&model.PracticeAttempt{},
		&model.PracticeQuestion{},
		&model.QuestionAttempt{},
		&model.Flashcard{},
		&model.KnowledgeDocument{},
		&model.KnowledgeChunk{},
		&model.LLMRequestLog{},
	)
	if err != nil {
		return err
	}

	logger.Log.Info("Database migration completed")

	// 默认知识领域
	var count int64
	db.Model(&model.Topic{}).Count(&count)
	if count == 0 {
		for _, t := range model.DefaultTopics {
			topic := t
			if err := db.Create(&topic).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
