package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

const DefaultNotesTTL = 24 * time.Hour

type NotesService interface {
	// LessonNotes summarizes an owned lesson, reusing a cached result for the
	// same lesson text.
	LessonNotes(dbc dbctx.Context, userID, lessonID uuid.UUID) (string, error)
}

type notesService struct {
	log     *logger.Logger
	lessons LessonService
	gen     ScriptGenerator
	cache   NotesCache
	ttl     time.Duration
	group   singleflight.Group
}

func NewNotesService(log *logger.Logger, lessons LessonService, gen ScriptGenerator, cache NotesCache, ttl time.Duration) NotesService {
	if cache == nil {
		cache = NewMemoryNotesCache()
	}
	if ttl <= 0 {
		ttl = DefaultNotesTTL
	}
	return &notesService{
		log:     log.With("service", "NotesService"),
		lessons: lessons,
		gen:     gen,
		cache:   cache,
		ttl:     ttl,
	}
}

func (s *notesService) LessonNotes(dbc dbctx.Context, userID, lessonID uuid.UUID) (string, error) {
	l, err := s.lessons.GetLesson(dbc, lessonID, userID)
	if err != nil {
		return "", err
	}
	text := l.ContextText()
	key := notesKey(lessonID, text)

	if notes, ok, err := s.cache.Get(dbc.Ctx, key); err != nil {
		s.log.Warn("Notes cache read failed (ignored)", "lesson_id", lessonID.String(), "error", err)
	} else if ok {
		return notes, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		// Detached from the first caller so a disconnect does not fail the
		// requests sharing this flight.
		ctx := context.Background()
		if dbc.Ctx != nil {
			ctx = context.WithoutCancel(dbc.Ctx)
		}
		notes, err := s.gen.Summarize(ctx, text)
		if err != nil {
			return "", err
		}
		if err := s.cache.Set(ctx, key, notes, s.ttl); err != nil {
			s.log.Warn("Notes cache write failed (ignored)", "lesson_id", lessonID.String(), "error", err)
		}
		return notes, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		s.log.Debug("Notes request collapsed", "lesson_id", lessonID.String())
	}
	return v.(string), nil
}

func notesKey(lessonID uuid.UUID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return lessonID.String() + ":" + hex.EncodeToString(sum[:8])
}
