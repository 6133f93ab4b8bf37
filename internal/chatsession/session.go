// Package chatsession keeps the question/answer log for one open lesson.
package chatsession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Entry is one line of the visible log. Failed marks a question whose
// answer never arrived; it is kept so the user can still see it.
type Entry struct {
	Role   Role
	Text   string
	Failed bool
	At     time.Time
}

// Turn is the history shape handed to the Answerer.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Exchange is a persisted question and answer pair.
type Exchange struct {
	Message  string
	Response string
}

type Answerer interface {
	Answer(ctx context.Context, question string, history []Turn) (string, error)
}

type Recorder interface {
	Record(ctx context.Context, question, answer string) error
}

type Session struct {
	log      *logger.Logger
	answerer Answerer
	recorder Recorder
	now      func() time.Time

	// sendMu keeps one question in flight so each history ends on a
	// completed exchange.
	sendMu sync.Mutex

	mu      sync.Mutex
	entries []Entry
}

func New(log *logger.Logger, answerer Answerer, recorder Recorder) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		log:      log.With("component", "ChatSession"),
		answerer: answerer,
		recorder: recorder,
		now:      time.Now,
	}
}

// Seed replaces the log with persisted history, oldest first.
func (s *Session) Seed(history []Exchange) {
	entries := make([]Entry, 0, len(history)*2)
	for _, ex := range history {
		entries = append(entries,
			Entry{Role: RoleUser, Text: ex.Message},
			Entry{Role: RoleAI, Text: ex.Response},
		)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Send asks one question. The question is logged before the answer is
// requested; on failure it stays in the log marked Failed and nothing is
// persisted. Questions are answered one at a time; a second Send waits for
// the first to finish.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apierr.Validation(errors.New("message is required"))
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	history := make([]Turn, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Failed {
			continue
		}
		history = append(history, Turn{Role: string(e.Role), Text: e.Text})
	}
	idx := len(s.entries)
	s.entries = append(s.entries, Entry{Role: RoleUser, Text: text, At: s.now()})
	s.mu.Unlock()

	answer, err := s.answerer.Answer(ctx, text, history)
	if err != nil {
		s.mu.Lock()
		if idx < len(s.entries) && s.entries[idx].Role == RoleUser && s.entries[idx].Text == text {
			s.entries[idx].Failed = true
		}
		s.mu.Unlock()
		s.log.Warn("Chat answer failed", "error", err)
		if apierr.CodeOf(err) == apierr.CodeUpstreamFailure {
			return "", err
		}
		return "", apierr.Upstream(err)
	}

	s.mu.Lock()
	s.entries = append(s.entries, Entry{Role: RoleAI, Text: answer, At: s.now()})
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, text, answer); err != nil {
			s.log.Warn("Chat turn not persisted", "error", err)
		}
	}
	return answer, nil
}
