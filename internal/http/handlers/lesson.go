package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/smartboard-backend/internal/http/response"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/services"
)

const DefaultUploadMaxBytes int64 = 20 << 20

// uploadFields are tried in order; the web client posts "pdf".
var uploadFields = []string{"pdf", "file"}

type LessonHandler struct {
	lessonService  services.LessonService
	uploadMaxBytes int64
}

func NewLessonHandler(lessonService services.LessonService, uploadMaxBytes int64) *LessonHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = DefaultUploadMaxBytes
	}
	return &LessonHandler{lessonService: lessonService, uploadMaxBytes: uploadMaxBytes}
}

// GET /api/lessons
func (lh *LessonHandler) ListLessons(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	lessons, err := lh.lessonService.ListLessons(dbcFrom(c), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	out := make([]services.LessonView, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, services.NewLessonView(l))
	}
	response.RespondOK(c, gin.H{"lessons": out})
}

// POST /api/lesson/topic
// body: { "topic": "...", "content": "..." }
func (lh *LessonHandler) CreateFromTopic(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Topic   string `json:"topic"`
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	l, err := lh.lessonService.CreateLessonStub(dbcFrom(c), userID, req.Topic, req.Content)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": services.NewLessonView(l)})
}

// POST /api/lesson/upload (multipart: pdf|file, topic)
func (lh *LessonHandler) Upload(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, lh.uploadMaxBytes+(1<<20))

	fh, err := lh.formFile(c)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if fh.Size > lh.uploadMaxBytes {
		response.RespondServiceError(c, lh.tooLarge())
		return
	}
	data, err := readUpload(fh, lh.uploadMaxBytes)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	l, err := lh.lessonService.CreateLessonFromUpload(dbcFrom(c), userID, services.UploadInput{
		Topic:    c.PostForm("topic"),
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": services.NewLessonView(l)})
}

func (lh *LessonHandler) formFile(c *gin.Context) (*multipart.FileHeader, error) {
	for _, field := range uploadFields {
		fh, err := c.FormFile(field)
		if err == nil {
			return fh, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, lh.tooLarge()
		}
	}
	return nil, apierr.Validation(errors.New("no file uploaded"))
}

func (lh *LessonHandler) tooLarge() error {
	return apierr.New(http.StatusRequestEntityTooLarge, apierr.CodeValidationFailed,
		fmt.Errorf("file exceeds %d bytes", lh.uploadMaxBytes))
}

func readUpload(fh *multipart.FileHeader, max int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apierr.Validation(fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, apierr.Validation(fmt.Errorf("read upload: %w", err))
	}
	if int64(len(data)) > max {
		return nil, apierr.New(http.StatusRequestEntityTooLarge, apierr.CodeValidationFailed,
			fmt.Errorf("file exceeds %d bytes", max))
	}
	return data, nil
}

// PUT /api/lesson/:id
// body: { "script": [...] | "<json string>", "content": "..." }
func (lh *LessonHandler) AttachScript(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	lessonID, ok := lessonIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content *string         `json:"content"`
		Script  json.RawMessage `json:"script"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if len(strings.TrimSpace(string(req.Script))) == 0 {
		response.RespondServiceError(c, apierr.Validation(errors.New("script is required")))
		return
	}
	l, err := lh.lessonService.AttachScript(dbcFrom(c), lessonID, userID, services.AttachScriptInput{
		Content: req.Content,
		Script:  req.Script,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "lesson": services.NewLessonView(l)})
}

// GET /api/lesson/:id
func (lh *LessonHandler) GetLesson(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	lessonID, ok := lessonIDParam(c, "id")
	if !ok {
		return
	}
	l, err := lh.lessonService.GetLesson(dbcFrom(c), lessonID, userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": services.NewLessonView(l)})
}
