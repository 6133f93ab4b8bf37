package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/smartboard-backend/internal/domain"
)

func SeedUser(tb testing.TB, tx *gorm.DB, name string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.com",
		GoogleSub: "sub-" + uuid.NewString(),
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedLesson(tb testing.TB, tx *gorm.DB, userID uuid.UUID, topic string, createdAt time.Time) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:        uuid.New(),
		UserID:    userID,
		Topic:     topic,
		CreatedAt: createdAt,
	}
	if err := tx.Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedChatMessage(tb testing.TB, tx *gorm.DB, lessonID, userID uuid.UUID, message string, at time.Time) *types.ChatMessage {
	tb.Helper()
	m := &types.ChatMessage{
		ID:        uuid.New(),
		LessonID:  lessonID,
		UserID:    userID,
		Message:   message,
		Response:  "answer to " + message,
		Timestamp: at,
	}
	if err := tx.Create(m).Error; err != nil {
		tb.Fatalf("seed chat message: %v", err)
	}
	return m
}
