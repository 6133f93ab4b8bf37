// Package classroom ties the REST client, the lesson player and the chat
// session into the flow a learner goes through: create or open a lesson,
// watch it play, ask questions, read the notes.
package classroom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/chatsession"
	"github.com/yungbote/smartboard-backend/internal/client"
	"github.com/yungbote/smartboard-backend/internal/domain/lesson"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/player"
)

var ErrNoLesson = errors.New("classroom: no lesson open")

// API is the part of the REST client the classroom uses.
type API interface {
	CreateLessonFromTopic(ctx context.Context, topic, content string) (*client.Lesson, error)
	CreateLessonFromUpload(ctx context.Context, filename string, data io.Reader, topic string) (*client.Lesson, error)
	AttachScript(ctx context.Context, lessonID uuid.UUID, content *string, script lesson.Script) (*client.Lesson, error)
	GetLesson(ctx context.Context, lessonID uuid.UUID) (*client.Lesson, error)
	ListChat(ctx context.Context, lessonID uuid.UUID) ([]client.ChatTurn, error)
	SaveChatTurn(ctx context.Context, lessonID uuid.UUID, message, response string) (*client.ChatTurn, error)
	GenerateScript(ctx context.Context, topic, content string) (lesson.Script, error)
	Answer(ctx context.Context, lessonID uuid.UUID, question string, history []client.Turn) (string, error)
	Summarize(ctx context.Context, lessonID uuid.UUID) (string, error)
}

type Options struct {
	Narrator player.Narrator
	Log      *logger.Logger
	// OnChange observes every player snapshot.
	OnChange func(player.Snapshot)
}

// Classroom holds at most one open lesson. Every lesson plays on the same
// player, so opening another one starts a new playback and any result still
// in flight for the previous lesson is dropped.
type Classroom struct {
	api    API
	log    *logger.Logger
	player *player.Player

	mu     sync.RWMutex
	lesson *client.Lesson
	chat   *chatsession.Session
}

func New(api API, opts Options) *Classroom {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	c := &Classroom{api: api, log: log.With("component", "Classroom")}
	c.player = player.New(player.Options{
		Narrator:  opts.Narrator,
		Log:       c.log,
		Summarize: c.summarize,
	})
	if opts.OnChange != nil {
		c.player.OnChange(opts.OnChange)
	}
	return c
}

// CreateLesson persists a stub for topic, generates and attaches its script,
// then plays the lesson as stored. When generation fails the stub is kept
// and returned alongside the error; nothing starts playing.
func (c *Classroom) CreateLesson(ctx context.Context, topic, content string) (*client.Lesson, error) {
	stub, err := c.api.CreateLessonFromTopic(ctx, topic, content)
	if err != nil {
		return nil, err
	}
	return c.prepare(ctx, stub)
}

// CreateLessonFromUpload is CreateLesson for a document; the server extracts
// the text that becomes the lesson content.
func (c *Classroom) CreateLessonFromUpload(ctx context.Context, filename string, data io.Reader, topic string) (*client.Lesson, error) {
	stub, err := c.api.CreateLessonFromUpload(ctx, filename, data, topic)
	if err != nil {
		return nil, err
	}
	return c.prepare(ctx, stub)
}

func (c *Classroom) prepare(ctx context.Context, stub *client.Lesson) (*client.Lesson, error) {
	script, err := c.api.GenerateScript(ctx, stub.Topic, stub.Content)
	if err != nil {
		c.log.Warn("Script generation failed", "lesson_id", stub.ID, "error", err)
		return stub, fmt.Errorf("generate script: %w", err)
	}
	if _, err := c.api.AttachScript(ctx, stub.ID, nil, script); err != nil {
		return stub, fmt.Errorf("attach script: %w", err)
	}
	stored, err := c.api.GetLesson(ctx, stub.ID)
	if err != nil {
		return stub, fmt.Errorf("refetch lesson: %w", err)
	}
	c.open(stored, nil)
	return stored, nil
}

// OpenLesson loads a stored lesson with its chat history and replays it from
// the first step.
func (c *Classroom) OpenLesson(ctx context.Context, lessonID uuid.UUID) (*client.Lesson, error) {
	l, err := c.api.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	turns, err := c.api.ListChat(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	history := make([]chatsession.Exchange, 0, len(turns))
	for _, t := range turns {
		history = append(history, chatsession.Exchange{Message: t.Message, Response: t.Response})
	}
	c.open(l, history)
	return l, nil
}

func (c *Classroom) open(l *client.Lesson, history []chatsession.Exchange) {
	id := l.ID
	chat := chatsession.New(c.log, &lessonAnswerer{api: c.api, lessonID: id}, &lessonRecorder{api: c.api, lessonID: id})
	chat.Seed(history)

	c.mu.Lock()
	c.lesson, c.chat = l, chat
	c.mu.Unlock()

	if l.Script.Validate() != nil {
		c.log.Info("Lesson has no playable script yet", "lesson_id", id)
		c.player.Reset()
		return
	}
	c.player.Start(l.Script)
}

// summarize asks for notes on the lesson open when the last step is passed.
// A result for a lesson that has since been replaced belongs to an earlier
// playback and is dropped by the player.
func (c *Classroom) summarize(ctx context.Context) (string, error) {
	l := c.Lesson()
	if l == nil {
		return "", ErrNoLesson
	}
	return c.api.Summarize(ctx, l.ID)
}

func (c *Classroom) Lesson() *client.Lesson {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lesson
}

func (c *Classroom) Player() *player.Player { return c.player }

func (c *Classroom) Chat() *chatsession.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chat
}

func (c *Classroom) Advance() error {
	if c.Lesson() == nil {
		return ErrNoLesson
	}
	c.player.Advance()
	return nil
}

// Ask sends a question about the open lesson.
func (c *Classroom) Ask(ctx context.Context, question string) (string, error) {
	chat := c.Chat()
	if chat == nil {
		return "", ErrNoLesson
	}
	return chat.Send(ctx, question)
}

type lessonAnswerer struct {
	api      API
	lessonID uuid.UUID
}

func (a *lessonAnswerer) Answer(ctx context.Context, question string, history []chatsession.Turn) (string, error) {
	turns := make([]client.Turn, 0, len(history))
	for _, h := range history {
		turns = append(turns, client.Turn{Role: h.Role, Text: h.Text})
	}
	answer, err := a.api.Answer(ctx, a.lessonID, question, turns)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		return "", errors.New("empty answer")
	}
	return answer, nil
}

type lessonRecorder struct {
	api      API
	lessonID uuid.UUID
}

func (r *lessonRecorder) Record(ctx context.Context, question, answer string) error {
	_, err := r.api.SaveChatTurn(ctx, r.lessonID, question, answer)
	return err
}
