package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/smartboard-backend/internal/domain"
)

// AutoMigrateAll creates or updates every table. Composite indexes
// (idx_lesson_user_created, idx_chat_message_lesson_ts) come from model tags.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.User{},
		&types.Lesson{},
		&types.ChatMessage{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
