package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/smartboard-backend/internal/data/repos/chat"
	"github.com/yungbote/smartboard-backend/internal/data/repos/lesson"
	"github.com/yungbote/smartboard-backend/internal/data/repos/user"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type LessonRepo = lesson.LessonRepo
type LessonUpdate = lesson.LessonUpdate
type ChatMessageRepo = chat.ChatMessageRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return lesson.NewLessonRepo(db, baseLog)
}
func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, baseLog)
}
