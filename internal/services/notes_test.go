package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/smartboard-backend/internal/data/repos/testutil"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

func TestLessonNotesCollapsesConcurrentRequests(t *testing.T) {
	f := newLessonFixture(t, nil)
	owner := testutil.SeedUser(t, f.db, "ada")
	l, _ := f.lessons.CreateLessonStub(f.dbc, owner.ID, "Photosynthesis", "Leaves capture light.")

	ai := &fakeAI{textOut: "## Summary", blockCh: make(chan struct{}), started: make(chan struct{})}
	notes := NewNotesService(logger.Nop(), f.lessons, NewScriptGenerator(logger.Nop(), ai, 0), NewMemoryNotesCache(), time.Hour)

	var wg sync.WaitGroup
	results := make([]string, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = notes.LessonNotes(f.dbc, owner.ID, l.ID)
		}(i)
	}
	<-ai.started
	time.Sleep(50 * time.Millisecond)
	close(ai.blockCh)
	wg.Wait()

	for i := range results {
		if errs[i] != nil || results[i] != "## Summary" {
			t.Fatalf("request %d: %q %v", i, results[i], errs[i])
		}
	}
	if ai.Calls() != 1 {
		t.Fatalf("expected one provider call, got %d", ai.Calls())
	}
	if _, err := notes.LessonNotes(f.dbc, owner.ID, l.ID); err != nil || ai.Calls() != 1 {
		t.Fatalf("cached notes should not call provider: calls=%d err=%v", ai.Calls(), err)
	}
}

func TestLessonNotesFailureIsNotCached(t *testing.T) {
	f := newLessonFixture(t, nil)
	owner := testutil.SeedUser(t, f.db, "ada")
	l, _ := f.lessons.CreateLessonStub(f.dbc, owner.ID, "Cells", "")

	ai := &fakeAI{err: errors.New("quota")}
	notes := NewNotesService(logger.Nop(), f.lessons, NewScriptGenerator(logger.Nop(), ai, 0), nil, 0)

	_, err := notes.LessonNotes(f.dbc, owner.ID, l.ID)
	requireCode(t, err, apierr.CodeUpstreamFailure)

	ai.mu.Lock()
	ai.err, ai.textOut = nil, "## Cells"
	ai.mu.Unlock()
	got, err := notes.LessonNotes(f.dbc, owner.ID, l.ID)
	if err != nil || got != "## Cells" {
		t.Fatalf("retry after failure: %q %v", got, err)
	}
	if ai.user == "" || ai.Calls() != 2 {
		t.Fatalf("expected a second provider call, got %d", ai.Calls())
	}
}

func TestLessonNotesUnownedLesson(t *testing.T) {
	f := newLessonFixture(t, nil)
	alice := testutil.SeedUser(t, f.db, "alice")
	bob := testutil.SeedUser(t, f.db, "bob")
	l, _ := f.lessons.CreateLessonStub(f.dbc, alice.ID, "Cells", "")

	ai := &fakeAI{textOut: "x"}
	notes := NewNotesService(logger.Nop(), f.lessons, NewScriptGenerator(logger.Nop(), ai, 0), nil, 0)
	_, err := notes.LessonNotes(f.dbc, bob.ID, l.ID)
	requireCode(t, err, apierr.CodeNotFound)
	if ai.Calls() != 0 {
		t.Fatalf("provider must not be called for unowned lesson")
	}
}

func TestMemoryNotesCacheExpires(t *testing.T) {
	c := NewMemoryNotesCache().(*memoryNotesCache)
	now := time.Now()
	c.now = func() time.Time { return now }
	_ = c.Set(t.Context(), "k", "v", time.Minute)
	if v, ok, _ := c.Get(t.Context(), "k"); !ok || v != "v" {
		t.Fatalf("expected hit")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(t.Context(), "k"); ok {
		t.Fatalf("expected expiry")
	}
}
