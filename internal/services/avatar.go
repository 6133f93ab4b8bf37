package services

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

const avatarSize = 256

// defaultAvatarPalette is used when AVATAR_COLORS is unset.
var defaultAvatarPalette = []string{
	"#1E88E5", "#43A047", "#F4511E", "#8E24AA",
	"#00897B", "#3949AB", "#D81B60", "#6D4C41",
	"#FB8C00", "#546E7A",
}

type AvatarService interface {
	// ColorFor picks a palette colour deterministically from seed.
	ColorFor(seed string) string
	// RenderPNG draws the initials avatar of user.
	RenderPNG(user *types.User) ([]byte, error)
}

type avatarService struct {
	log        *logger.Logger
	colorByHex map[string]color.NRGBA
	colorHexes []string
	fontFace   font.Face
}

// NewAvatarService loads the palette and font. fontPath may be empty, in which
// case the embedded Go Bold face is used.
func NewAvatarService(log *logger.Logger, palette []string, fontPath string) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	if len(palette) == 0 {
		palette = defaultAvatarPalette
	}
	colorByHex := make(map[string]color.NRGBA, len(palette))
	colorHexes := make([]string, 0, len(palette))
	for _, raw := range palette {
		h := normalizeHex(raw)
		if h == "" {
			serviceLog.Warn("Skipping invalid avatar colour", "color", raw)
			continue
		}
		r, g, b, _ := parseHexRGB(h)
		if _, dup := colorByHex[h]; dup {
			continue
		}
		colorByHex[h] = color.NRGBA{R: r, G: g, B: b, A: 255}
		colorHexes = append(colorHexes, h)
	}
	if len(colorHexes) == 0 {
		return nil, fmt.Errorf("avatar colors list is empty")
	}

	face, err := loadFontFace(fontPath, avatarSize*0.4)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		log:        serviceLog,
		colorByHex: colorByHex,
		colorHexes: colorHexes,
		fontFace:   face,
	}, nil
}

func (as *avatarService) ColorFor(seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return as.colorHexes[int(h.Sum32()%uint32(len(as.colorHexes)))]
}

func (as *avatarService) RenderPNG(user *types.User) ([]byte, error) {
	if user == nil {
		return nil, fmt.Errorf("user required")
	}
	dc := gg.NewContext(avatarSize, avatarSize)

	dc.DrawCircle(avatarSize/2, avatarSize/2, avatarSize/2)
	dc.Clip()

	dc.SetColor(as.pickColor(user))
	dc.DrawRectangle(0, 0, avatarSize, avatarSize)
	dc.Fill()

	dc.SetFontFace(as.fontFace)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(computeInitials(user.Name), avatarSize/2, avatarSize/2, 0.5, 0.35)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (as *avatarService) pickColor(user *types.User) color.NRGBA {
	if c, ok := as.colorByHex[normalizeHex(user.AvatarColor)]; ok {
		return c
	}
	return as.colorByHex[as.ColorFor(user.ID.String())]
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	s = strings.ToUpper(s)
	if len(s) != 7 {
		return ""
	}
	if _, _, _, err := parseHexRGB(s); err != nil {
		return ""
	}
	return s
}

func parseHexRGB(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("expected 6 hex chars")
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid hex")
	}
	return raw[0], raw[1], raw[2], nil
}

// computeInitials takes the first letter of the first and last words of name.
func computeInitials(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	if len(words) == 0 {
		return "?"
	}
	first := firstRuneUpper(words[0])
	if len(words) == 1 {
		return first
	}
	return first + firstRuneUpper(words[len(words)-1])
}

func firstRuneUpper(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes := gobold.TTF
	if p := strings.TrimSpace(fontPath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		fontBytes = b
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
