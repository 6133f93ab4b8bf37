package services

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

func TestComputeInitials(t *testing.T) {
	cases := map[string]string{
		"Ada Lovelace":        "AL",
		"guest":               "G",
		"  jean-luc picard  ": "JP",
		"":                    "?",
		"élodie durand":       "ÉD",
	}
	for in, want := range cases {
		if got := computeInitials(in); got != want {
			t.Fatalf("computeInitials(%q): got=%q want=%q", in, got, want)
		}
	}
}

func TestAvatarColorIsDeterministic(t *testing.T) {
	svc, err := NewAvatarService(logger.Nop(), []string{"#112233", "445566", "bogus"}, "")
	if err != nil {
		t.Fatalf("NewAvatarService: %v", err)
	}
	a := svc.ColorFor("mock-123")
	if a != svc.ColorFor("mock-123") {
		t.Fatalf("colour changed between calls")
	}
	if a != "#112233" && a != "#445566" {
		t.Fatalf("colour outside palette: %s", a)
	}
	if _, err := NewAvatarService(logger.Nop(), []string{"nope"}, ""); err == nil {
		t.Fatalf("expected error for empty palette")
	}
}

func TestRenderPNG(t *testing.T) {
	svc, err := NewAvatarService(logger.Nop(), nil, "")
	if err != nil {
		t.Fatalf("NewAvatarService: %v", err)
	}
	raw, err := svc.RenderPNG(&types.User{ID: uuid.New(), Name: "Guest Student"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != avatarSize || b.Dy() != avatarSize {
		t.Fatalf("unexpected size: %v", b)
	}
}
