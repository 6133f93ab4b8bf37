package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/smartboard-backend/internal/domain/lesson"
)

// ChatMessage is one persisted question/answer exchange. Rows are append-only.
type ChatMessage struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID uuid.UUID      `gorm:"type:uuid;not null;index;index:idx_chat_message_lesson_ts,priority:1" json:"lesson_id"`
	Lesson   *lesson.Lesson `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
	UserID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`

	Message  string `gorm:"column:message;type:text;not null" json:"message"`
	Response string `gorm:"column:response;type:text;not null;default:''" json:"response"`

	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_chat_message_lesson_ts,priority:2" json:"timestamp"`
}

func (ChatMessage) TableName() string { return "chat_message" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
