package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

var (
	// ErrNoText means the document parsed but carried no extractable text,
	// e.g. a scanned PDF.
	ErrNoText = errors.New("no text extracted")
	// ErrUnsupportedFile means the bytes are not a document type we can read.
	ErrUnsupportedFile = errors.New("unsupported file type")
)

var htmlTagRe = regexp.MustCompile(`(?s)<[^>]*>`)

// ExtractText sniffs the real file type from its bytes and extracts plain text.
// Supported: PDF, DOCX, PPTX, HTML and plaintext/markdown.
func ExtractText(originalName string, mimeType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	if len(data) == 0 {
		return "", fmt.Errorf("empty file: name=%s", originalName)
	}

	if isPDF(data) {
		return extractPDF(data)
	}
	if isZip(data) {
		kind, err := detectOpenXMLKind(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
		}
		if kind == "docx" {
			return extractOpenXMLText(data, func(name string) bool { return name == "word/document.xml" })
		}
		return extractOpenXMLText(data, func(name string) bool {
			return strings.HasPrefix(name, "ppt/slides/") && strings.HasSuffix(name, ".xml")
		})
	}
	if looksLikeHTML(data) || mt == "text/html" || ext == ".html" || ext == ".htm" {
		return nonEmpty(extractHTML(string(data)))
	}
	if isProbablyText(data) || strings.HasPrefix(mt, "text/") || ext == ".txt" || ext == ".md" || ext == ".markdown" {
		return nonEmpty(collapseWhitespace(string(data)))
	}
	if mt == "application/pdf" || ext == ".pdf" {
		return "", fmt.Errorf("%w: name=%s claims pdf but has no %%PDF header", ErrUnsupportedFile, originalName)
	}
	return "", fmt.Errorf("%w: name=%s ext=%s mime=%s", ErrUnsupportedFile, originalName, ext, mimeType)
}

func nonEmpty(s string) (string, error) {
	if s == "" {
		return "", ErrNoText
	}
	return s, nil
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func looksLikeHTML(b []byte) bool {
	s := strings.TrimSpace(strings.ToLower(string(b[:min(len(b), 2048)])))
	if strings.HasPrefix(s, "<!doctype") || strings.HasPrefix(s, "<html") {
		return true
	}
	return strings.Contains(s, "<html") && strings.Contains(s, "</html>")
}

// isProbablyText accepts samples with no NUL bytes that are mostly printable.
func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return nonEmpty(collapseWhitespace(string(b)))
}

func detectOpenXMLKind(zipBytes []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	hasWord, hasPpt := false, false
	for _, f := range zr.File {
		hasWord = hasWord || strings.HasPrefix(f.Name, "word/")
		hasPpt = hasPpt || strings.HasPrefix(f.Name, "ppt/")
	}
	switch {
	case hasWord && !hasPpt:
		return "docx", nil
	case hasPpt && !hasWord:
		return "pptx", nil
	default:
		return "", fmt.Errorf("zip does not look like docx or pptx")
	}
}

// extractOpenXMLText gathers every <*:t> run from the parts selected by want,
// in archive order.
func extractOpenXMLText(zipBytes []byte, want func(name string) bool) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, f := range zr.File {
		if !want(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", err
		}
		out.WriteString(extractTextRuns(b))
		out.WriteString("\n")
	}
	return nonEmpty(collapseWhitespace(out.String()))
}

func extractTextRuns(xmlBytes []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "t" {
			continue
		}
		var v string
		if err := dec.DecodeElement(&v, &se); err == nil && v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}

func extractHTML(s string) string {
	return collapseWhitespace(html.UnescapeString(htmlTagRe.ReplaceAllString(s, " ")))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
