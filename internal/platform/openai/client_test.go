package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

func replyWith(text string) map[string]any {
	return map[string]any{
		"output": []any{
			map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, retries int) Client {
	t.Helper()
	c, err := NewClientWithConfig(logger.Nop(), Config{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: retries})
	if err != nil {
		t.Fatalf("NewClientWithConfig: %v", err)
	}
	return c
}

func TestGenerateTextWithHistorySendsTurnsInOrder(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(replyWith("Chlorophyll absorbs light."))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	text, err := c.GenerateTextWithHistory(t.Context(), "You are the teacher.", []Message{
		{Role: RoleUser, Content: "What is a leaf?"},
		{Role: RoleAssistant, Content: "An organ."},
		{Role: "model", Content: "What does chlorophyll do?"},
	})
	if err != nil {
		t.Fatalf("GenerateTextWithHistory: %v", err)
	}
	if text != "Chlorophyll absorbs light." {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(got.Input) != 4 {
		t.Fatalf("unexpected input length: %d", len(got.Input))
	}
	wantRoles := []string{RoleSystem, RoleUser, RoleAssistant, RoleUser}
	for i, role := range wantRoles {
		if got.Input[i].Role != role {
			t.Fatalf("input[%d] role: got=%s want=%s", i, got.Input[i].Role, role)
		}
	}
}

func TestGenerateJSONParsesStructuredOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req responsesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Text.Format["type"] != "json_schema" || req.Text.Format["name"] != "lesson_script" {
			t.Errorf("unexpected format: %v", req.Text.Format)
		}
		_ = json.NewEncoder(w).Encode(replyWith(`{"steps":[{"speech":"hi","board":"","action":"idle"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	obj, err := c.GenerateJSON(t.Context(), "sys", "user", "lesson_script", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	steps, ok := obj["steps"].([]any)
	if !ok || len(steps) != 1 {
		t.Fatalf("unexpected obj: %v", obj)
	}
}

func TestProviderErrorIsNotRetriedByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"busy"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 0)
	_, err := c.GenerateText(t.Context(), "sys", "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	he, ok := err.(*HTTPError)
	if !ok || he.HTTPStatusCode() != http.StatusServiceUnavailable {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly one call, got %d", n)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClientWithConfig(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
