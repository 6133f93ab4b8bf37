package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/smartboard-backend/internal/data/repos"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

type Repos struct {
	User        repos.UserRepo
	Lesson      repos.LessonRepo
	ChatMessage repos.ChatMessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		Lesson:      repos.NewLessonRepo(db, log),
		ChatMessage: repos.NewChatMessageRepo(db, log),
	}
}
