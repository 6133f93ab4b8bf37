package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/gcp"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		_, _ = w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	docx := buildZip(t, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   `<w:document xmlns:w="w"><w:body><w:p><w:r><w:t>Leaves</w:t></w:r><w:r><w:t>capture light.</w:t></w:r></w:p></w:body></w:document>`,
	})
	pptx := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": `<p:sld xmlns:p="p" xmlns:a="a"><a:t>Slide one</a:t></p:sld>`,
	})

	cases := []struct {
		name, file, mime string
		data             []byte
		want             string
	}{
		{"plaintext", "notes.txt", "text/plain", []byte("  Chlorophyll\n\tis green.  "), "Chlorophyll is green."},
		{"markdown", "notes.md", "", []byte("# Title\n\nBody"), "# Title Body"},
		{"html", "page.html", "text/html", []byte("<html><body><h1>Cells</h1><p>A &amp; B</p></body></html>"), "Cells A & B"},
		{"docx", "bio.docx", "", docx, "Leaves capture light."},
		{"pptx", "deck.pptx", "", pptx, "Slide one"},
	}
	for _, tc := range cases {
		got, err := ExtractText(tc.file, tc.mime, tc.data)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got=%q want=%q", tc.name, got, tc.want)
		}
	}
}

func TestExtractTextErrors(t *testing.T) {
	if _, err := ExtractText("x.bin", "", []byte{0x00, 0x01, 0x02, 0x03}); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("binary: expected ErrUnsupportedFile, got %v", err)
	}
	if _, err := ExtractText("fake.pdf", "application/pdf", []byte{0x00, 0xff}); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("fake pdf: expected ErrUnsupportedFile, got %v", err)
	}
	if _, err := ExtractText("blank.txt", "text/plain", []byte("   \n ")); !errors.Is(err, ErrNoText) {
		t.Fatalf("blank: expected ErrNoText, got %v", err)
	}
	if _, err := ExtractText("empty.txt", "", nil); err == nil {
		t.Fatalf("empty: expected error")
	}
}

type fakeDocument struct {
	text  string
	err   error
	calls int
	mime  string
}

func (f *fakeDocument) ProcessBytes(ctx context.Context, req gcp.DocAIProcessBytesRequest) (*gcp.DocAIResult, error) {
	f.calls++
	f.mime = req.MimeType
	if f.err != nil {
		return nil, f.err
	}
	return &gcp.DocAIResult{PrimaryText: f.text}, nil
}

func (f *fakeDocument) Close() error { return nil }

func TestContentExtractorFallsBackToOCR(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	doc := &fakeDocument{text: "Scanned  page\ntext"}
	ex := NewContentExtractor(logger.Nop(), doc)
	got, err := ex.Extract(t.Context(), "scan.png", "image/png", png)
	if err != nil || got != "Scanned page text" {
		t.Fatalf("Extract: %q %v", got, err)
	}
	if doc.calls != 1 || doc.mime != "image/png" {
		t.Fatalf("unexpected OCR call: %+v", doc)
	}

	got, err = ex.Extract(t.Context(), "notes.txt", "text/plain", []byte("plain text"))
	if err != nil || got != "plain text" || doc.calls != 1 {
		t.Fatalf("local extraction should not call OCR: %q %v calls=%d", got, err, doc.calls)
	}

	failing := NewContentExtractor(logger.Nop(), &fakeDocument{err: errors.New("unavailable")})
	_, err = failing.Extract(t.Context(), "scan.png", "image/png", png)
	requireCode(t, err, apierr.CodeUpstreamFailure)

	noOCR := NewContentExtractor(logger.Nop(), nil)
	_, err = noOCR.Extract(t.Context(), "scan.png", "image/png", png)
	requireCode(t, err, apierr.CodeUpstreamFailure)
}
