package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

// ChatMessageRepo stores question/answer pairs. Lesson ownership is checked by
// the caller before either method runs.
type ChatMessageRepo interface {
	Create(dbc dbctx.Context, row *types.ChatMessage) (*types.ChatMessage, error)
	ListByLesson(dbc dbctx.Context, lessonID uuid.UUID) ([]*types.ChatMessage, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: log.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) Create(dbc dbctx.Context, row *types.ChatMessage) (*types.ChatMessage, error) {
	if row == nil {
		return nil, fmt.Errorf("chat message required")
	}
	if row.LessonID == uuid.Nil {
		return nil, fmt.Errorf("missing lesson_id")
	}
	if err := dbc.Conn(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *chatMessageRepo) ListByLesson(dbc dbctx.Context, lessonID uuid.UUID) ([]*types.ChatMessage, error) {
	out := []*types.ChatMessage{}
	if lessonID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("lesson_id = ?", lessonID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
