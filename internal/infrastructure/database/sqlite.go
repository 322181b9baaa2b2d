package database

import (
	"fmt"
	"log"

	"fantasyrally/internal/config"
	"fantasyrally/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitSQLite 初始化 SQLite 连接
// WAL + busy_timeout：写入串行化由 SQLite 保证，并发写等锁而不是直接报错
func InitSQLite(cfg *config.SQLiteConfig) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("连接 SQLite 失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("获取底层 DB 失败: %v", err)
	}

	// SQLite 单写者，连接池收紧避免 busy 竞争
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移表结构
	err = db.AutoMigrate(
		&model.User{},
		&model.ContentItem{},
		&model.DepositOrder{},
		&model.SweepcoinTransaction{},
		&model.WebhookEvent{},
		&model.OutboxMessage{},
	)
	if err != nil {
		log.Fatalf("自动迁移表结构失败: %v", err)
	}

	DB = db
	log.Println("SQLite 连接成功")
	return db
}
