package database

import (
	"clean-care-backend/internal/env"
	"clean-care-backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func OpenSQL(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is empty", driver)
	}

	var dialector gorm.Dialector
	switch driver {
	case env.DriverPostgres:
		dialector = postgres.Open(dsn)
	case env.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	log.Printf("Connected to %s store", driver)
	return db, nil
}

// Migrate creates the bot tables and one message table per chat type.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.BotMessageConfigItem{},
		&model.BotTriggerRuleItem{},
		&model.BotConversationStateItem{},
		&model.BotAnalyticsItem{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate bot tables: %w", err)
	}

	for _, chatType := range model.ChatTypes() {
		table := SQLMessagesTable(chatType)
		if err := db.Table(table).AutoMigrate(&model.ChatMessageItem{}); err != nil {
			return fmt.Errorf("auto-migrate %s: %w", table, err)
		}
	}
	return nil
}

func SQLMessagesTable(chatType model.ChatType) string {
	if chatType == model.ChatTypeComplaint {
		return "complaint_chat_messages"
	}
	return "live_chat_messages"
}
