package lesson

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

// LessonUpdate holds the mutable columns of a lesson. Nil fields are left untouched.
type LessonUpdate struct {
	Content *string
	Script  datatypes.JSON
}

type LessonRepo interface {
	Create(dbc dbctx.Context, l *types.Lesson) (*types.Lesson, error)
	// GetByIDForUser returns nil when the lesson is missing or owned by someone else.
	GetByIDForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.Lesson, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Lesson, error)
	// Update applies a single owner-scoped UPDATE and reports whether a row matched.
	Update(dbc dbctx.Context, id, userID uuid.UUID, upd LessonUpdate) (bool, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, l *types.Lesson) (*types.Lesson, error) {
	if l == nil {
		return nil, fmt.Errorf("lesson required")
	}
	if l.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if strings.TrimSpace(l.Topic) == "" {
		return nil, fmt.Errorf("missing topic")
	}
	if err := dbc.Conn(r.db).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

func (r *lessonRepo) GetByIDForUser(dbc dbctx.Context, id, userID uuid.UUID) (*types.Lesson, error) {
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	var row types.Lesson
	err := dbc.Conn(r.db).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *lessonRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Lesson, error) {
	out := []*types.Lesson{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonRepo) Update(dbc dbctx.Context, id, userID uuid.UUID, upd LessonUpdate) (bool, error) {
	if id == uuid.Nil || userID == uuid.Nil {
		return false, nil
	}
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if upd.Content != nil {
		updates["content"] = *upd.Content
	}
	if upd.Script != nil {
		updates["script"] = upd.Script
	}
	res := dbc.Conn(r.db).
		Model(&types.Lesson{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
