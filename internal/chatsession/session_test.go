package chatsession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
)

type fakeAnswerer struct {
	answer    string
	err       error
	histories [][]Turn
}

func (f *fakeAnswerer) Answer(_ context.Context, _ string, history []Turn) (string, error) {
	f.histories = append(f.histories, history)
	return f.answer, f.err
}

type fakeRecorder struct {
	rows [][2]string
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, q, a string) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, [2]string{q, a})
	return nil
}

func TestSendAppendsAndPersists(t *testing.T) {
	ans := &fakeAnswerer{answer: "Chlorophyll."}
	rec := &fakeRecorder{}
	s := New(nil, ans, rec)
	s.Seed([]Exchange{{Message: "What is light?", Response: "Energy."}})

	got, err := s.Send(context.Background(), "  What absorbs it?  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != "Chlorophyll." {
		t.Fatalf("answer: %q", got)
	}

	hist := ans.histories[0]
	if len(hist) != 2 || hist[0].Role != "user" || hist[1].Text != "Energy." {
		t.Fatalf("history: %+v", hist)
	}
	entries := s.Entries()
	if len(entries) != 4 || entries[2].Text != "What absorbs it?" || entries[3].Role != RoleAI {
		t.Fatalf("entries: %+v", entries)
	}
	if len(rec.rows) != 1 || rec.rows[0] != [2]string{"What absorbs it?", "Chlorophyll."} {
		t.Fatalf("persisted: %+v", rec.rows)
	}
}

func TestSendFailureKeepsQuestionAndPersistsNothing(t *testing.T) {
	ans := &fakeAnswerer{err: errors.New("provider timeout")}
	rec := &fakeRecorder{}
	s := New(nil, ans, rec)

	_, err := s.Send(context.Background(), "Why is the sky blue?")
	if !apierr.Is(err, apierr.CodeUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	entries := s.Entries()
	if len(entries) != 1 || !entries[0].Failed || entries[0].Text != "Why is the sky blue?" {
		t.Fatalf("entries: %+v", entries)
	}
	if len(rec.rows) != 0 {
		t.Fatalf("persisted after failure: %+v", rec.rows)
	}

	ans.err, ans.answer = nil, "Scattering."
	if _, err := s.Send(context.Background(), "Try again?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(ans.histories[1]) != 0 {
		t.Fatalf("failed question leaked into history: %+v", ans.histories[1])
	}
}

func TestSendSwallowsPersistFailure(t *testing.T) {
	s := New(nil, &fakeAnswerer{answer: "yes"}, &fakeRecorder{err: errors.New("db down")})
	got, err := s.Send(context.Background(), "ok?")
	if err != nil || got != "yes" {
		t.Fatalf("got=%q err=%v", got, err)
	}
	if n := len(s.Entries()); n != 2 {
		t.Fatalf("entries: %d", n)
	}
}

func TestSendRejectsEmpty(t *testing.T) {
	ans := &fakeAnswerer{answer: "x"}
	s := New(nil, ans, nil)
	if _, err := s.Send(context.Background(), "   "); !apierr.Is(err, apierr.CodeValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ans.histories) != 0 || len(s.Entries()) != 0 {
		t.Fatalf("empty message reached the answerer")
	}
}

// gatedAnswerer holds every answer until release is closed.
type gatedAnswerer struct {
	entered chan string
	release chan struct{}

	mu        sync.Mutex
	histories [][]Turn
}

func (g *gatedAnswerer) Answer(_ context.Context, q string, history []Turn) (string, error) {
	g.mu.Lock()
	g.histories = append(g.histories, history)
	g.mu.Unlock()
	g.entered <- q
	<-g.release
	return "re: " + q, nil
}

func (g *gatedAnswerer) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.histories)
}

func TestSendAnswersOneQuestionAtATime(t *testing.T) {
	ans := &gatedAnswerer{entered: make(chan string, 2), release: make(chan struct{})}
	s := New(nil, ans, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := s.Send(context.Background(), "first"); err != nil {
			t.Errorf("first: %v", err)
		}
	}()
	if q := <-ans.entered; q != "first" {
		t.Fatalf("answered %q first", q)
	}
	go func() {
		defer wg.Done()
		if _, err := s.Send(context.Background(), "second"); err != nil {
			t.Errorf("second: %v", err)
		}
	}()
	time.Sleep(50 * time.Millisecond)
	if n := ans.calls(); n != 1 {
		t.Fatalf("second question sent while first in flight: %d calls", n)
	}

	close(ans.release)
	wg.Wait()

	ans.mu.Lock()
	hist := ans.histories[1]
	ans.mu.Unlock()
	if len(hist) != 2 || hist[0].Text != "first" || hist[1].Text != "re: first" {
		t.Fatalf("second history: %+v", hist)
	}
	entries := s.Entries()
	want := []string{"first", "re: first", "second", "re: second"}
	if len(entries) != len(want) {
		t.Fatalf("entries: %+v", entries)
	}
	for i, e := range entries {
		if e.Text != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, e.Text, want[i])
		}
	}
}
