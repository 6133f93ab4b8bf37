package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/gcp"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

// ContentExtractor turns an uploaded document into lesson content.
type ContentExtractor interface {
	Extract(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}

type contentExtractor struct {
	log *logger.Logger
	doc gcp.Document
}

// NewContentExtractor extracts locally and, when doc is non-nil, falls back to
// Document AI OCR for scans and images.
func NewContentExtractor(log *logger.Logger, doc gcp.Document) ContentExtractor {
	return &contentExtractor{log: log.With("service", "ContentExtractor"), doc: doc}
}

func (e *contentExtractor) Extract(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apierr.Validation(fmt.Errorf("uploaded file is empty"))
	}
	sniffed := http.DetectContentType(data)

	text, err := ExtractText(filename, mimeType, data)
	if err == nil {
		return text, nil
	}
	ocrable := errors.Is(err, ErrNoText) || strings.HasPrefix(sniffed, "image/")
	if !ocrable || e.doc == nil {
		e.log.Warn("Local text extraction failed", "filename", filename, "error", err)
		return "", apierr.Upstream(fmt.Errorf("could not extract text from %q: %w", filename, err))
	}

	ocrMime := sniffed
	if isPDF(data) {
		ocrMime = "application/pdf"
	}
	e.log.Info("Falling back to Document AI", "filename", filename, "mime", ocrMime)
	res, ocrErr := e.doc.ProcessBytes(ctx, gcp.DocAIProcessBytesRequest{MimeType: ocrMime, Data: data})
	if ocrErr != nil {
		e.log.Warn("Document AI failed", "filename", filename, "transient", gcp.IsTransient(ocrErr), "error", ocrErr)
		return "", apierr.Upstream(fmt.Errorf("document ocr failed: %w", ocrErr))
	}
	text = collapseWhitespace(res.PrimaryText)
	if text == "" {
		return "", apierr.Upstream(fmt.Errorf("could not extract text from %q: %w", filename, ErrNoText))
	}
	return text, nil
}
