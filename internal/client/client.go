// Package client talks to the smartboard REST API on behalf of one signed-in
// user. The session is explicit: every Client carries the Session it acts for.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/domain/lesson"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
)

const DefaultTimeout = 60 * time.Second

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profile_image,omitempty"`
	AvatarColor  string    `json:"avatar_color,omitempty"`
	AvatarURL    string    `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type Lesson struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	Topic       string        `json:"topic"`
	Content     string        `json:"content"`
	SourceName  string        `json:"source_name,omitempty"`
	Script      lesson.Script `json:"script"`
	ScriptReady bool          `json:"script_ready"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ChatTurn struct {
	ID        uuid.UUID `json:"id"`
	LessonID  uuid.UUID `json:"lesson_id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Session struct {
	BaseURL string
	Token   string
	User    *User
}

type Client struct {
	hc      *http.Client
	session Session
}

func New(hc *http.Client, session Session) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	session.BaseURL = strings.TrimRight(session.BaseURL, "/")
	return &Client{hc: hc, session: session}
}

func (c *Client) Session() Session { return c.session }

// WithSession returns a client acting for s over the same transport.
func (c *Client) WithSession(s Session) *Client {
	if s.BaseURL == "" {
		s.BaseURL = c.session.BaseURL
	}
	return New(c.hc, s)
}

// APIError is a non-2xx reply. Kind is one of the apierr codes.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smartboard api %d %s: %s", e.Status, e.Kind, e.Message)
}

func IsKind(err error, kind string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == kind
}

// Exchange trades an identity-provider token for a session.
func (c *Client) Exchange(ctx context.Context, idToken string) (Session, error) {
	var out struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/exchange", map[string]string{"idToken": idToken}, &out); err != nil {
		return Session{}, err
	}
	user := out.User
	return Session{BaseURL: c.session.BaseURL, Token: out.Token, User: &user}, nil
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/user/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ListLessons(ctx context.Context) ([]Lesson, error) {
	var out struct {
		Lessons []Lesson `json:"lessons"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/lessons", nil, &out); err != nil {
		return nil, err
	}
	return out.Lessons, nil
}

func (c *Client) CreateLessonFromTopic(ctx context.Context, topic, content string) (*Lesson, error) {
	body := map[string]string{"topic": topic, "content": content}
	return c.lessonCall(ctx, http.MethodPost, "/api/lesson/topic", body)
}

// CreateLessonFromUpload sends a document as the "pdf" multipart field. The
// server extracts its text into the lesson content.
func (c *Client) CreateLessonFromUpload(ctx context.Context, filename string, data io.Reader, topic string) (*Lesson, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if strings.TrimSpace(topic) != "" {
		if err := mw.WriteField("topic", topic); err != nil {
			return nil, err
		}
	}
	fw, err := mw.CreateFormFile("pdf", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var out struct {
		Lesson Lesson `json:"lesson"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/lesson/upload", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out.Lesson, nil
}

// AttachScript stores the script, and content when non-nil, on a lesson.
func (c *Client) AttachScript(ctx context.Context, lessonID uuid.UUID, content *string, script lesson.Script) (*Lesson, error) {
	body := struct {
		Content *string       `json:"content,omitempty"`
		Script  lesson.Script `json:"script"`
	}{Content: content, Script: script}
	return c.lessonCall(ctx, http.MethodPut, "/api/lesson/"+lessonID.String(), body)
}

func (c *Client) GetLesson(ctx context.Context, lessonID uuid.UUID) (*Lesson, error) {
	return c.lessonCall(ctx, http.MethodGet, "/api/lesson/"+lessonID.String(), nil)
}

func (c *Client) SaveChatTurn(ctx context.Context, lessonID uuid.UUID, message, response string) (*ChatTurn, error) {
	body := map[string]string{"lessonId": lessonID.String(), "message": message, "response": response}
	var out struct {
		Message ChatTurn `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/message", body, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *Client) ListChat(ctx context.Context, lessonID uuid.UUID) ([]ChatTurn, error) {
	var out struct {
		Messages []ChatTurn `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(lessonID.String()), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) GenerateScript(ctx context.Context, topic, content string) (lesson.Script, error) {
	var out struct {
		Script lesson.Script `json:"script"`
	}
	body := map[string]string{"topic": topic, "content": content}
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/script", body, &out); err != nil {
		return nil, err
	}
	return out.Script, nil
}

func (c *Client) Answer(ctx context.Context, lessonID uuid.UUID, question string, history []Turn) (string, error) {
	if history == nil {
		history = []Turn{}
	}
	body := struct {
		LessonID string `json:"lessonId"`
		Question string `json:"question"`
		History  []Turn `json:"history"`
	}{LessonID: lessonID.String(), Question: question, History: history}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/answer", body, &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

// Summarize asks for end-of-lesson notes built from the lesson's content, or
// its topic when there is no content.
func (c *Client) Summarize(ctx context.Context, lessonID uuid.UUID) (string, error) {
	var out struct {
		Notes string `json:"notes"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/notes", map[string]string{"lessonId": lessonID.String()}, &out); err != nil {
		return "", err
	}
	return out.Notes, nil
}

func (c *Client) lessonCall(ctx context.Context, method, path string, body any) (*Lesson, error) {
	var out struct {
		Lesson Lesson `json:"lesson"`
	}
	if err := c.doJSON(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Lesson, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	if body == nil {
		return c.do(ctx, method, path, nil, "", out)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(raw), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.session.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, raw []byte) *APIError {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	ae := &APIError{Status: status}
	if json.Unmarshal(raw, &env) == nil {
		ae.Kind = env.Error.Code
		ae.Message = env.Error.Message
	}
	if ae.Kind == "" {
		ae.Kind = kindForStatus(status)
	}
	if ae.Message == "" {
		ae.Message = strings.TrimSpace(string(raw))
		if ae.Message == "" {
			ae.Message = http.StatusText(status)
		}
	}
	return ae
}

func kindForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return apierr.CodeUnauthenticated
	case status == http.StatusNotFound:
		return apierr.CodeNotFound
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return apierr.CodeUpstreamFailure
	case status >= 400 && status < 500:
		return apierr.CodeValidationFailed
	default:
		return apierr.CodeInternal
	}
}
