package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/smartboard-backend/internal/data/repos"
	types "github.com/yungbote/smartboard-backend/internal/domain"
	lessondomain "github.com/yungbote/smartboard-backend/internal/domain/lesson"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/gcp"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

const DefaultUploadTopic = "PDF Lesson"

type UploadInput struct {
	Topic    string
	Filename string
	MimeType string
	Data     []byte
}

// AttachScriptInput carries the new script and, optionally, replacement
// content. Script may be a JSON array of steps or a JSON string holding one.
type AttachScriptInput struct {
	Content *string
	Script  json.RawMessage
}

// LessonView is the wire shape of a lesson, with the script decoded.
type LessonView struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	Topic       string             `json:"topic"`
	Content     string             `json:"content"`
	SourceName  string             `json:"source_name,omitempty"`
	Script      []types.ScriptStep `json:"script"`
	ScriptReady bool               `json:"script_ready"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewLessonView decodes the stored script. A script that no longer decodes is
// reported as not ready rather than failing the read.
func NewLessonView(l *types.Lesson) LessonView {
	steps, err := l.Steps()
	if err != nil || steps == nil {
		steps = types.Script{}
	}
	return LessonView{
		ID:          l.ID,
		UserID:      l.UserID,
		Topic:       l.Topic,
		Content:     l.Content,
		SourceName:  l.SourceName,
		Script:      steps,
		ScriptReady: len(steps) > 0,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

type LessonService interface {
	CreateLessonStub(dbc dbctx.Context, userID uuid.UUID, topic, content string) (*types.Lesson, error)
	CreateLessonFromUpload(dbc dbctx.Context, userID uuid.UUID, in UploadInput) (*types.Lesson, error)
	AttachScript(dbc dbctx.Context, lessonID, userID uuid.UUID, in AttachScriptInput) (*types.Lesson, error)
	GetLesson(dbc dbctx.Context, lessonID, userID uuid.UUID) (*types.Lesson, error)
	ListLessons(dbc dbctx.Context, userID uuid.UUID) ([]*types.Lesson, error)
}

type lessonService struct {
	log        *logger.Logger
	lessonRepo repos.LessonRepo
	extractor  ContentExtractor
	bucket     gcp.BucketService
	notify     LessonNotifier
}

// NewLessonService wires the lesson store. bucket and notify may be nil.
func NewLessonService(
	log *logger.Logger,
	lessonRepo repos.LessonRepo,
	extractor ContentExtractor,
	bucket gcp.BucketService,
	notify LessonNotifier,
) LessonService {
	return &lessonService{
		log:        log.With("service", "LessonService"),
		lessonRepo: lessonRepo,
		extractor:  extractor,
		bucket:     bucket,
		notify:     notify,
	}
}

func (s *lessonService) CreateLessonStub(dbc dbctx.Context, userID uuid.UUID, topic, content string) (*types.Lesson, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apierr.Validation(fmt.Errorf("topic is required"))
	}
	return s.create(dbc, &types.Lesson{UserID: userID, Topic: topic, Content: content})
}

func (s *lessonService) CreateLessonFromUpload(dbc dbctx.Context, userID uuid.UUID, in UploadInput) (*types.Lesson, error) {
	if len(in.Data) == 0 {
		return nil, apierr.Validation(fmt.Errorf("no file uploaded"))
	}
	if s.extractor == nil {
		return nil, apierr.Upstream(fmt.Errorf("document extraction is not configured"))
	}
	text, err := s.extractor.Extract(dbc.Ctx, in.Filename, in.MimeType, in.Data)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		return nil, apierr.Upstream(err)
	}

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = DefaultUploadTopic
	}
	created, err := s.create(dbc, &types.Lesson{
		UserID:     userID,
		Topic:      topic,
		Content:    text,
		SourceName: strings.TrimSpace(in.Filename),
	})
	if err != nil {
		return nil, err
	}
	s.archiveUpload(dbc, created, in)
	return created, nil
}

// archiveUpload keeps the original file next to the lesson. Failures only log.
func (s *lessonService) archiveUpload(dbc dbctx.Context, l *types.Lesson, in UploadInput) {
	if s.bucket == nil {
		return
	}
	key := gcp.UploadKey(l.UserID.String(), l.ID.String(), in.Filename)
	if err := s.bucket.UploadFile(dbc, key, bytes.NewReader(in.Data)); err != nil {
		s.log.Warn("Archiving upload failed (ignored)", "lesson_id", l.ID.String(), "key", key, "error", err)
		return
	}
	s.log.Debug("Archived upload", "lesson_id", l.ID.String(), "key", key)
}

func (s *lessonService) create(dbc dbctx.Context, l *types.Lesson) (*types.Lesson, error) {
	if l.UserID == uuid.Nil {
		return nil, apierr.Unauthenticated(nil)
	}
	created, err := s.lessonRepo.Create(dbc, l)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("create lesson: %w", err))
	}
	if s.notify != nil {
		s.notify.LessonCreated(dbc.Ctx, created.UserID, created)
	}
	return created, nil
}

func (s *lessonService) AttachScript(dbc dbctx.Context, lessonID, userID uuid.UUID, in AttachScriptInput) (*types.Lesson, error) {
	steps, err := lessondomain.DecodeScript(in.Script)
	if err != nil {
		return nil, apierr.Validation(err)
	}
	if err := steps.Validate(); err != nil {
		return nil, apierr.Validation(err)
	}
	encoded, err := steps.Encode()
	if err != nil {
		return nil, apierr.Internal(err)
	}

	ok, err := s.lessonRepo.Update(dbc, lessonID, userID, repos.LessonUpdate{
		Content: in.Content,
		Script:  datatypes.JSON(encoded),
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("update lesson: %w", err))
	}
	if !ok {
		return nil, apierr.NotFound("lesson")
	}

	updated, err := s.GetLesson(dbc, lessonID, userID)
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.LessonUpdated(dbc.Ctx, userID, updated)
	}
	return updated, nil
}

func (s *lessonService) GetLesson(dbc dbctx.Context, lessonID, userID uuid.UUID) (*types.Lesson, error) {
	l, err := s.lessonRepo.GetByIDForUser(dbc, lessonID, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("get lesson: %w", err))
	}
	if l == nil {
		return nil, apierr.NotFound("lesson")
	}
	return l, nil
}

func (s *lessonService) ListLessons(dbc dbctx.Context, userID uuid.UUID) ([]*types.Lesson, error) {
	out, err := s.lessonRepo.ListByUser(dbc, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list lessons: %w", err))
	}
	return out, nil
}
