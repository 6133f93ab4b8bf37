package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/smartboard-backend/internal/data/repos"
	"github.com/yungbote/smartboard-backend/internal/data/repos/testutil"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/openai"
	"github.com/yungbote/smartboard-backend/internal/realtime"
)

// fakeAI is a scripted openai.Client.
type fakeAI struct {
	mu sync.Mutex

	jsonOut  map[string]any
	textOut  string
	err      error
	calls    int
	system   string
	user     string
	turns    []openai.Message
	schema   map[string]any
	blockCh  chan struct{}
	started  chan struct{}
	startOne sync.Once
}

func (f *fakeAI) record(system, user string, turns []openai.Message) {
	f.mu.Lock()
	f.calls++
	f.system, f.user, f.turns = system, user, turns
	f.mu.Unlock()
	if f.started != nil {
		f.startOne.Do(func() { close(f.started) })
	}
	if f.blockCh != nil {
		<-f.blockCh
	}
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.record(system, user, nil)
	f.mu.Lock()
	f.schema = schema
	f.mu.Unlock()
	return f.jsonOut, f.err
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.record(system, user, nil)
	return f.textOut, f.err
}

func (f *fakeAI) GenerateTextWithHistory(ctx context.Context, system string, turns []openai.Message) (string, error) {
	f.record(system, "", turns)
	return f.textOut, f.err
}

func (f *fakeAI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingEmitter captures realtime messages instead of publishing them.
type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) Events() []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(e.msgs))
	for _, m := range e.msgs {
		out = append(out, m.Event)
	}
	return out
}

type lessonFixture struct {
	db      *gorm.DB
	dbc     dbctx.Context
	lessons LessonService
	chat    ChatService
	emitter *recordingEmitter
}

func newLessonFixture(t *testing.T, extractor ContentExtractor) *lessonFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emitter := &recordingEmitter{}
	notify := NewLessonNotifier(emitter)
	lessonRepo := repos.NewLessonRepo(db, log)
	return &lessonFixture{
		db:      db,
		dbc:     dbctx.Context{Ctx: t.Context()},
		lessons: NewLessonService(log, lessonRepo, extractor, nil, notify),
		chat:    NewChatService(log, lessonRepo, repos.NewChatMessageRepo(db, log), notify),
		emitter: emitter,
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apierr.CodeOf(err); got != code {
		t.Fatalf("expected code %s, got %q (%v)", code, got, err)
	}
}
