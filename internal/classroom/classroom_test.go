package classroom

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/client"
	"github.com/yungbote/smartboard-backend/internal/domain/lesson"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/player"
)

// fakeAPI is an in-memory stand-in for the REST surface.
type fakeAPI struct {
	mu        sync.Mutex
	lessons   map[uuid.UUID]*client.Lesson
	chat      map[uuid.UUID][]client.ChatTurn
	script    lesson.Script
	scriptErr error
	answerErr error
	notes     string
	summaries int
	// gate, when set, holds every Summarize call until it is closed.
	gate         chan struct{}
	summaryCalls chan uuid.UUID
	summaryDone  chan uuid.UUID
	histories [][]client.Turn
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{lessons: map[uuid.UUID]*client.Lesson{}, chat: map[uuid.UUID][]client.ChatTurn{}}
}

func (f *fakeAPI) CreateLessonFromTopic(_ context.Context, topic, content string) (*client.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := &client.Lesson{ID: uuid.New(), Topic: topic, Content: content}
	f.lessons[l.ID] = l
	cp := *l
	return &cp, nil
}

func (f *fakeAPI) CreateLessonFromUpload(ctx context.Context, _ string, data io.Reader, topic string) (*client.Lesson, error) {
	raw, _ := io.ReadAll(data)
	if topic == "" {
		topic = "PDF Lesson"
	}
	return f.CreateLessonFromTopic(ctx, topic, string(raw))
}

func (f *fakeAPI) AttachScript(_ context.Context, id uuid.UUID, content *string, script lesson.Script) (*client.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return nil, &client.APIError{Status: 404, Kind: apierr.CodeNotFound}
	}
	if content != nil {
		l.Content = *content
	}
	l.Script = script.Normalize()
	l.ScriptReady = true
	cp := *l
	return &cp, nil
}

func (f *fakeAPI) GetLesson(_ context.Context, id uuid.UUID) (*client.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return nil, &client.APIError{Status: 404, Kind: apierr.CodeNotFound}
	}
	cp := *l
	return &cp, nil
}

func (f *fakeAPI) ListChat(_ context.Context, id uuid.UUID) ([]client.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.ChatTurn(nil), f.chat[id]...), nil
}

func (f *fakeAPI) SaveChatTurn(_ context.Context, id uuid.UUID, message, response string) (*client.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := client.ChatTurn{ID: uuid.New(), LessonID: id, Message: message, Response: response}
	f.chat[id] = append(f.chat[id], t)
	return &t, nil
}

func (f *fakeAPI) GenerateScript(context.Context, string, string) (lesson.Script, error) {
	if f.scriptErr != nil {
		return nil, f.scriptErr
	}
	return f.script, nil
}

func (f *fakeAPI) Answer(_ context.Context, _ uuid.UUID, _ string, history []client.Turn) (string, error) {
	f.mu.Lock()
	f.histories = append(f.histories, history)
	f.mu.Unlock()
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return "Chlorophyll absorbs it.", nil
}

func (f *fakeAPI) Summarize(_ context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	f.summaries++
	gate, calls, done, notes := f.gate, f.summaryCalls, f.summaryDone, f.notes
	f.mu.Unlock()
	if calls != nil {
		calls <- id
	}
	if gate != nil {
		<-gate
	}
	if done != nil {
		defer func() { done <- id }()
	}
	if notes == "" {
		notes = "notes for " + id.String()
	}
	return notes, nil
}

type quietNarrator struct{}

func (quietNarrator) Narrate(string, func()) bool { return true }

func photosynthesisScript() lesson.Script {
	return lesson.Script{
		{Speech: "Plants make food.", Board: "# Photosynthesis", Action: lesson.ActionExplaining},
		{Speech: "Here is the equation.", Board: "6CO2 + 6H2O", Action: "scribbling"},
		{Speech: "Oxygen is released.", Board: "O2", Action: lesson.ActionPointing},
	}
}

func waitForPhase(t *testing.T, p *player.Player, phase player.Phase) player.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := p.Snapshot(); s.State.Phase == phase {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("player never reached %v; at %v", phase, p.State())
	return player.Snapshot{}
}

func TestPhotosynthesisLesson(t *testing.T) {
	api := newFakeAPI()
	api.script = photosynthesisScript()
	api.notes = "- plants turn light into sugar"

	var mu sync.Mutex
	finishShown := map[player.State]bool{}
	room := New(api, Options{
		Narrator: quietNarrator{},
		OnChange: func(s player.Snapshot) {
			if s.Control == player.ControlFinish {
				mu.Lock()
				finishShown[s.State] = true
				mu.Unlock()
			}
		},
	})

	l, err := room.CreateLesson(context.Background(), "Photosynthesis", "")
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	if !l.ScriptReady || len(l.Script) != 3 || l.Script[1].Action != lesson.ActionIdle {
		t.Fatalf("stored lesson: %+v", l)
	}

	p := room.Player()
	if st := p.State(); st != player.Playing(0) {
		t.Fatalf("state after create: %v", st)
	}
	for i := 0; i < 2; i++ {
		if err := room.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	if st := p.State(); st != player.Playing(2) {
		t.Fatalf("state after two advances: %v", st)
	}
	_ = room.Advance()
	_ = room.Advance()
	s := waitForPhase(t, p, player.PhaseFinished)
	if s.Notes != api.notes {
		t.Fatalf("notes: %q", s.Notes)
	}

	api.mu.Lock()
	summaries := api.summaries
	api.mu.Unlock()
	if summaries != 1 {
		t.Fatalf("summaries requested: %d", summaries)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(finishShown) != 1 || !finishShown[player.Playing(2)] {
		t.Fatalf("finish control shown on: %v", finishShown)
	}
}

func TestCreateLessonKeepsStubWhenGenerationFails(t *testing.T) {
	api := newFakeAPI()
	api.scriptErr = &client.APIError{Status: 502, Kind: apierr.CodeUpstreamFailure, Message: "model down"}
	room := New(api, Options{Narrator: quietNarrator{}})

	stub, err := room.CreateLesson(context.Background(), "Volcanoes", "")
	if !client.IsKind(err, apierr.CodeUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	if stub == nil || stub.Topic != "Volcanoes" {
		t.Fatalf("stub: %+v", stub)
	}
	if _, err := api.GetLesson(context.Background(), stub.ID); err != nil {
		t.Fatalf("stub not persisted: %v", err)
	}
	if st := room.Player().State(); st != player.Idle() {
		t.Fatalf("player started after failure: %v", st)
	}
	if err := room.Advance(); !errors.Is(err, ErrNoLesson) {
		t.Fatalf("Advance without lesson: %v", err)
	}
}

func TestOpenLessonSeedsChatAndReplays(t *testing.T) {
	api := newFakeAPI()
	stub, _ := api.CreateLessonFromTopic(context.Background(), "Cells", "")
	_, _ = api.AttachScript(context.Background(), stub.ID, nil, lesson.Script{{Speech: "Cells divide.", Board: "mitosis"}})
	_, _ = api.SaveChatTurn(context.Background(), stub.ID, "What is a cell?", "The unit of life.")

	room := New(api, Options{Narrator: quietNarrator{}})
	if _, err := room.OpenLesson(context.Background(), stub.ID); err != nil {
		t.Fatalf("OpenLesson: %v", err)
	}
	if s := room.Player().Snapshot(); s.State != player.Playing(0) || s.Board != "mitosis" {
		t.Fatalf("snapshot: %+v", s)
	}

	answer, err := room.Ask(context.Background(), "How do they divide?")
	if err != nil || answer == "" {
		t.Fatalf("Ask: %q %v", answer, err)
	}
	if h := api.histories[0]; len(h) != 2 || h[0].Text != "What is a cell?" || h[1].Role != "ai" {
		t.Fatalf("history: %+v", h)
	}
	turns, _ := api.ListChat(context.Background(), stub.ID)
	if len(turns) != 2 {
		t.Fatalf("chat rows: %d", len(turns))
	}
}

func TestAskFailureLeavesMessageAndNoRow(t *testing.T) {
	api := newFakeAPI()
	api.script = lesson.Script{{Speech: "Hi.", Board: "hello"}}
	room := New(api, Options{Narrator: quietNarrator{}})
	l, err := room.CreateLesson(context.Background(), "Greetings", "")
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	before := room.Player().Snapshot()

	api.answerErr = errors.New("provider timeout")
	if _, err := room.Ask(context.Background(), "Why?"); !apierr.Is(err, apierr.CodeUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	entries := room.Chat().Entries()
	if len(entries) != 1 || entries[0].Text != "Why?" || !entries[0].Failed {
		t.Fatalf("entries: %+v", entries)
	}
	if turns, _ := api.ListChat(context.Background(), l.ID); len(turns) != 0 {
		t.Fatalf("row created after failure: %+v", turns)
	}
	if after := room.Player().Snapshot(); after.State != before.State || after.Board != before.Board {
		t.Fatalf("player changed: %+v -> %+v", before, after)
	}
}

func TestOpeningAnotherLessonDropsPendingNotes(t *testing.T) {
	api := newFakeAPI()
	api.script = lesson.Script{{Speech: "Only step.", Board: "# A"}}
	api.gate = make(chan struct{})
	api.summaryCalls = make(chan uuid.UUID, 1)
	api.summaryDone = make(chan uuid.UUID, 1)

	var mu sync.Mutex
	var seen []player.Snapshot
	room := New(api, Options{
		Narrator: quietNarrator{},
		OnChange: func(s player.Snapshot) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		},
	})

	a, err := room.CreateLesson(context.Background(), "Lesson A", "")
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	_ = room.Advance()
	if st := room.Player().State(); st != player.AwaitingNotes() {
		t.Fatalf("A state: %v", st)
	}
	if id := <-api.summaryCalls; id != a.ID {
		t.Fatalf("summary requested for %s, want %s", id, a.ID)
	}

	api.script = lesson.Script{{Speech: "First of B.", Board: "# B"}, {Speech: "Second of B.", Board: "# B2"}}
	b, err := room.CreateLesson(context.Background(), "Lesson B", "")
	if err != nil {
		t.Fatalf("create B: %v", err)
	}
	mu.Lock()
	mark := len(seen)
	mu.Unlock()

	close(api.gate)
	if id := <-api.summaryDone; id != a.ID {
		t.Fatalf("finished summary for %s, want %s", id, a.ID)
	}
	// Give the dropped result time to pass through the event queue.
	time.Sleep(50 * time.Millisecond)

	s := room.Player().Snapshot()
	if s.State != player.Playing(0) || s.Board != "# B" || s.Notes != "" {
		t.Fatalf("B snapshot after A's notes arrived: %+v", s)
	}
	if room.Lesson().ID != b.ID {
		t.Fatalf("open lesson: %s", room.Lesson().ID)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, snap := range seen[mark:] {
		if snap.State.Phase == player.PhaseFinished || snap.Notes != "" {
			t.Fatalf("observer saw notes from lesson A under lesson B: %+v", snap)
		}
	}
}

func TestOpenLessonWithoutScriptResetsPlayer(t *testing.T) {
	api := newFakeAPI()
	api.script = lesson.Script{{Speech: "Hi.", Board: "hello"}}
	room := New(api, Options{Narrator: quietNarrator{}})
	if _, err := room.CreateLesson(context.Background(), "Greetings", ""); err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	bare, _ := api.CreateLessonFromTopic(context.Background(), "Unscripted", "")

	if _, err := room.OpenLesson(context.Background(), bare.ID); err != nil {
		t.Fatalf("OpenLesson: %v", err)
	}
	s := room.Player().Snapshot()
	if s.State != player.Idle() || s.Board != "" || s.Steps != 0 {
		t.Fatalf("snapshot: %+v", s)
	}
}
