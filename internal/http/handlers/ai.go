package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/smartboard-backend/internal/http/response"
	"github.com/yungbote/smartboard-backend/internal/services"
)

// AIHandler proxies the model calls so the provider key stays on the server.
// Every route is stateless: callers pass whatever history they want used.
type AIHandler struct {
	generator     services.ScriptGenerator
	lessonService services.LessonService
	notesService  services.NotesService
}

func NewAIHandler(generator services.ScriptGenerator, lessonService services.LessonService, notesService services.NotesService) *AIHandler {
	return &AIHandler{generator: generator, lessonService: lessonService, notesService: notesService}
}

// POST /api/ai/script
// body: { "topic": "...", "content": "..." }
func (ah *AIHandler) Script(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	var req struct {
		Topic   string `json:"topic"`
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	script, err := ah.generator.GenerateScript(c.Request.Context(), req.Topic, req.Content)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"script": script})
}

// POST /api/ai/answer
// body: { "lessonId": "...", "question": "...", "history": [{ "role": "user", "text": "..." }] }
func (ah *AIHandler) Answer(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		LessonID string          `json:"lessonId"`
		Question string          `json:"question"`
		History  []services.Turn `json:"history"`
	}
	if !bindJSON(c, &req) {
		return
	}
	lessonID, err := parseLessonID(req.LessonID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	l, err := ah.lessonService.GetLesson(dbcFrom(c), lessonID, userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	answer, err := ah.generator.AnswerQuestion(c.Request.Context(), l.ContextText(), req.Question, req.History)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"answer": answer})
}

// POST /api/ai/notes
// body: { "lessonId": "..." }
func (ah *AIHandler) Notes(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		LessonID string `json:"lessonId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	lessonID, err := parseLessonID(req.LessonID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	notes, err := ah.notesService.LessonNotes(dbcFrom(c), userID, lessonID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notes": notes})
}
