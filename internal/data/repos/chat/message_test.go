package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
)

func TestChatMessageRepoListsOldestFirst(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.From(context.Background())
	repo := NewChatMessageRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, db, "dana")
	l := testutil.SeedLesson(t, db, u.ID, "Tides", time.Now().UTC())
	other := testutil.SeedLesson(t, db, u.ID, "Moons", time.Now().UTC())
	base := time.Now().UTC().Add(-time.Hour)
	testutil.SeedChatMessage(t, db, l.ID, u.ID, "second", base.Add(time.Minute))
	testutil.SeedChatMessage(t, db, l.ID, u.ID, "first", base)
	testutil.SeedChatMessage(t, db, other.ID, u.ID, "elsewhere", base)

	created, err := repo.Create(dbc, &types.ChatMessage{
		ID: uuid.New(), LessonID: l.ID, UserID: u.ID,
		Message: "third", Response: "ok", Timestamp: base.Add(2 * time.Minute),
	})
	if err != nil || created.Message != "third" {
		t.Fatalf("Create: %+v %v", created, err)
	}

	rows, err := repo.ListByLesson(dbc, l.ID)
	if err != nil {
		t.Fatalf("ListByLesson: %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r.Message)
	}
	if len(got) != 3 || got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Fatalf("order: %v", got)
	}

	if rows, err := repo.ListByLesson(dbc, uuid.Nil); err != nil || len(rows) != 0 {
		t.Fatalf("nil lesson: %+v %v", rows, err)
	}
	if _, err := repo.Create(dbc, &types.ChatMessage{Message: "orphan"}); err == nil {
		t.Fatalf("expected error without lesson")
	}
}
