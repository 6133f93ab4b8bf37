package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/yungbote/smartboard-backend/internal/platform/ctxutil"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

// Document runs OCR over uploads that carry no extractable text layer.
type Document interface {
	ProcessBytes(ctx context.Context, req DocAIProcessBytesRequest) (*DocAIResult, error)
	Close() error
}

type DocumentConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
}

func (c DocumentConfig) Enabled() bool {
	return strings.TrimSpace(c.ProjectID) != "" && strings.TrimSpace(c.ProcessorID) != ""
}

type DocAIProcessBytesRequest struct {
	MimeType string
	Data     []byte
}

type DocAIResult struct {
	Provider    string   `json:"provider"`
	Processor   string   `json:"processor"`
	MimeType    string   `json:"mime_type"`
	PrimaryText string   `json:"primary_text"`
	Pages       []string `json:"pages,omitempty"`
}

type documentService struct {
	log       *logger.Logger
	cfg       DocumentConfig
	docClient *documentai.DocumentProcessorClient
}

func NewDocument(log *logger.Logger, cfg DocumentConfig) (Document, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("document ai not configured")
	}
	slog := log.With("service", "gcp.Document")

	if strings.TrimSpace(cfg.Location) == "" {
		cfg.Location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)

	docOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(context.Background(), docOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	slog.Info("Document AI initialized", "endpoint", endpoint)
	return &documentService{log: slog, cfg: cfg, docClient: c}, nil
}

func (s *documentService) Close() error {
	if s == nil || s.docClient == nil {
		return nil
	}
	return s.docClient.Close()
}

func (s *documentService) ProcessBytes(ctx context.Context, req DocAIProcessBytesRequest) (*DocAIResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	if req.MimeType == "" {
		req.MimeType = "application/pdf"
	}
	name := processorName(s.cfg.ProjectID, s.cfg.Location, s.cfg.ProcessorID, s.cfg.ProcessorVersion)
	if len(req.Data) == 0 {
		return &DocAIResult{Provider: "gcp_documentai", Processor: name, MimeType: req.MimeType}, nil
	}

	r := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  req.Data,
				MimeType: req.MimeType,
			},
		},
		FieldMask: &fieldmaskpb.FieldMask{Paths: []string{"text", "pages.page_number", "pages.paragraphs"}},
	}

	resp, err := s.docClient.ProcessDocument(ctx, r)
	if err != nil {
		if IsTransient(err) {
			s.log.Warn("Document AI unavailable", "processor", name, "error", err)
		}
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return &DocAIResult{Provider: "gcp_documentai", Processor: name, MimeType: req.MimeType}, nil
	}
	return buildDocAIResult(resp.Document, name, req.MimeType), nil
}

// IsTransient reports whether a gRPC failure is worth a manual retry by the caller.
func IsTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func buildDocAIResult(doc *documentaipb.Document, processor string, mimeType string) *DocAIResult {
	out := &DocAIResult{
		Provider:  "gcp_documentai",
		Processor: processor,
		MimeType:  mimeType,
	}
	if doc == nil {
		return out
	}
	out.PrimaryText = strings.TrimSpace(doc.Text)

	for _, p := range doc.Pages {
		if p == nil {
			continue
		}
		var pageText strings.Builder
		for _, para := range p.Paragraphs {
			if para == nil || para.Layout == nil || para.Layout.TextAnchor == nil {
				continue
			}
			t := strings.TrimSpace(textFromAnchor(doc.Text, para.Layout.TextAnchor))
			if t == "" {
				continue
			}
			pageText.WriteString(t)
			pageText.WriteString("\n")
		}
		if pt := strings.TrimSpace(pageText.String()); pt != "" {
			out.Pages = append(out.Pages, pt)
		}
	}
	if out.PrimaryText == "" && len(out.Pages) > 0 {
		out.PrimaryText = strings.Join(out.Pages, "\n\n")
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func processorName(project, location, processorID, version string) string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if strings.TrimSpace(version) != "" {
		name += "/processorVersions/" + version
	}
	return name
}
