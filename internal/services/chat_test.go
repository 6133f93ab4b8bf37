package services

import (
	"testing"
	"time"

	"github.com/yungbote/smartboard-backend/internal/data/repos/testutil"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/realtime"
)

func TestChatSaveTurnAndListOldestFirst(t *testing.T) {
	f := newLessonFixture(t, nil)
	owner := testutil.SeedUser(t, f.db, "ada")
	l := testutil.SeedLesson(t, f.db, owner.ID, "Photosynthesis", time.Now().UTC())
	testutil.SeedChatMessage(t, f.db, l.ID, owner.ID, "first", time.Now().UTC().Add(-time.Minute))

	saved, err := f.chat.SaveTurn(f.dbc, owner.ID, l.ID, "What is chlorophyll?", "A pigment.")
	if err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}
	rows, err := f.chat.List(f.dbc, owner.ID, l.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 || rows[0].Message != "first" || rows[1].ID != saved.ID {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if ev := f.emitter.Events(); len(ev) != 1 || ev[0] != realtime.SSEEventChatMessageSaved {
		t.Fatalf("unexpected events: %v", ev)
	}
}

func TestChatRequiresOwnedLesson(t *testing.T) {
	f := newLessonFixture(t, nil)
	alice := testutil.SeedUser(t, f.db, "alice")
	bob := testutil.SeedUser(t, f.db, "bob")
	l := testutil.SeedLesson(t, f.db, alice.ID, "Private", time.Now().UTC())

	_, err := f.chat.SaveTurn(f.dbc, bob.ID, l.ID, "hi", "hello")
	requireCode(t, err, apierr.CodeNotFound)

	_, err = f.chat.List(f.dbc, bob.ID, l.ID)
	requireCode(t, err, apierr.CodeNotFound)

	_, err = f.chat.SaveTurn(f.dbc, alice.ID, l.ID, "   ", "hello")
	requireCode(t, err, apierr.CodeValidationFailed)

	rows, _ := f.chat.List(f.dbc, alice.ID, l.ID)
	if len(rows) != 0 {
		t.Fatalf("no rows expected, got %d", len(rows))
	}
}
