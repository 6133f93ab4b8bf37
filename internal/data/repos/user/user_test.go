package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/data/repos/testutil"
	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
)

func TestFindOrCreateByGoogleSubIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.From(context.Background())
	repo := NewUserRepo(db, testutil.Logger(t))
	sub := "google-" + uuid.NewString()

	first, created, err := repo.FindOrCreateByGoogleSub(dbc, &types.User{ID: uuid.New(), GoogleSub: sub, Name: "Eve", Email: "eve@example.com"})
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	second, created, err := repo.FindOrCreateByGoogleSub(dbc, &types.User{ID: uuid.New(), GoogleSub: sub, Name: "Eve Again"})
	if err != nil || created {
		t.Fatalf("second: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Name != "Eve" {
		t.Fatalf("second returned a different user: %+v vs %+v", second, first)
	}

	if err := repo.UpdateAvatarColor(dbc, first.ID, "#336699"); err != nil {
		t.Fatalf("UpdateAvatarColor: %v", err)
	}
	got, err := repo.GetByID(dbc, first.ID)
	if err != nil || got == nil || got.AvatarColor != "#336699" {
		t.Fatalf("GetByID: %+v %v", got, err)
	}

	if got, err := repo.GetByGoogleSub(dbc, "  "); err != nil || got != nil {
		t.Fatalf("blank sub: %+v %v", got, err)
	}
	if _, _, err := repo.FindOrCreateByGoogleSub(dbc, &types.User{}); err == nil {
		t.Fatalf("expected error without google sub")
	}
}
