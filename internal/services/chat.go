package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/data/repos"
	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

type ChatService interface {
	// SaveTurn persists one question/answer pair on a lesson the caller owns.
	SaveTurn(dbc dbctx.Context, userID, lessonID uuid.UUID, message, response string) (*types.ChatMessage, error)
	// List returns a lesson's turns, oldest first.
	List(dbc dbctx.Context, userID, lessonID uuid.UUID) ([]*types.ChatMessage, error)
}

type chatService struct {
	log        *logger.Logger
	lessonRepo repos.LessonRepo
	chatRepo   repos.ChatMessageRepo
	notify     LessonNotifier
}

func NewChatService(log *logger.Logger, lessonRepo repos.LessonRepo, chatRepo repos.ChatMessageRepo, notify LessonNotifier) ChatService {
	return &chatService{
		log:        log.With("service", "ChatService"),
		lessonRepo: lessonRepo,
		chatRepo:   chatRepo,
		notify:     notify,
	}
}

func (s *chatService) SaveTurn(dbc dbctx.Context, userID, lessonID uuid.UUID, message, response string) (*types.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apierr.Validation(fmt.Errorf("message is required"))
	}
	if err := s.requireLesson(dbc, userID, lessonID); err != nil {
		return nil, err
	}
	row, err := s.chatRepo.Create(dbc, &types.ChatMessage{
		LessonID: lessonID,
		UserID:   userID,
		Message:  message,
		Response: response,
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("save chat message: %w", err))
	}
	if s.notify != nil {
		s.notify.ChatMessageSaved(dbc.Ctx, userID, row)
	}
	return row, nil
}

func (s *chatService) List(dbc dbctx.Context, userID, lessonID uuid.UUID) ([]*types.ChatMessage, error) {
	if err := s.requireLesson(dbc, userID, lessonID); err != nil {
		return nil, err
	}
	rows, err := s.chatRepo.ListByLesson(dbc, lessonID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list chat messages: %w", err))
	}
	return rows, nil
}

func (s *chatService) requireLesson(dbc dbctx.Context, userID, lessonID uuid.UUID) error {
	l, err := s.lessonRepo.GetByIDForUser(dbc, lessonID, userID)
	if err != nil {
		return apierr.Internal(fmt.Errorf("get lesson: %w", err))
	}
	if l == nil {
		return apierr.NotFound("lesson")
	}
	return nil
}
