package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/realtime"
	"github.com/yungbote/smartboard-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// BusEmitter publishes through the realtime bus. Publish failures are logged
// and dropped; realtime events are advisory.
type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Bus == nil {
		return
	}
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Log != nil {
		e.Log.Warn("realtime publish failed", "event", string(msg.Event), "error", err)
	}
}

type LessonNotifier interface {
	LessonCreated(ctx context.Context, userID uuid.UUID, lesson *types.Lesson)
	LessonUpdated(ctx context.Context, userID uuid.UUID, lesson *types.Lesson)
	ChatMessageSaved(ctx context.Context, userID uuid.UUID, msg *types.ChatMessage)
}

type lessonNotifier struct {
	emit SSEEmitter
}

func NewLessonNotifier(emit SSEEmitter) LessonNotifier {
	return &lessonNotifier{emit: emit}
}

func (n *lessonNotifier) LessonCreated(ctx context.Context, userID uuid.UUID, lesson *types.Lesson) {
	n.lessonEvent(ctx, realtime.SSEEventLessonCreated, userID, lesson)
}

func (n *lessonNotifier) LessonUpdated(ctx context.Context, userID uuid.UUID, lesson *types.Lesson) {
	n.lessonEvent(ctx, realtime.SSEEventLessonUpdated, userID, lesson)
}

func (n *lessonNotifier) lessonEvent(ctx context.Context, event realtime.SSEEvent, userID uuid.UUID, lesson *types.Lesson) {
	if n == nil || n.emit == nil || userID == uuid.Nil || lesson == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   event,
		Data: map[string]any{
			"lesson_id":    lesson.ID,
			"topic":        lesson.Topic,
			"script_ready": len(lesson.Script) > 0 && string(lesson.Script) != "null",
			"updated_at":   lesson.UpdatedAt.UTC().Format(time.RFC3339),
		},
	})
}

func (n *lessonNotifier) ChatMessageSaved(ctx context.Context, userID uuid.UUID, msg *types.ChatMessage) {
	if n == nil || n.emit == nil || userID == uuid.Nil || msg == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventChatMessageSaved,
		Data: map[string]any{
			"lesson_id":  msg.LessonID,
			"message_id": msg.ID,
		},
	})
}
