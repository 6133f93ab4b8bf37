package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/http/response"
	"github.com/yungbote/smartboard-backend/internal/services"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// POST /api/chat/message
// body: { "lessonId": "...", "message": "...", "response": "..." }
func (ch *ChatHandler) SaveMessage(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		LessonID string `json:"lessonId"`
		Message  string `json:"message"`
		Response string `json:"response"`
	}
	if !bindJSON(c, &req) {
		return
	}
	lessonID, err := parseLessonID(req.LessonID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	msg, err := ch.chatService.SaveTurn(dbcFrom(c), userID, lessonID, req.Message, req.Response)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "message": msg})
}

// GET /api/chat/:lessonId
func (ch *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	lessonID, ok := lessonIDParam(c, "lessonId")
	if !ok {
		return
	}
	msgs, err := ch.chatService.List(dbcFrom(c), userID, lessonID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if msgs == nil {
		msgs = []*types.ChatMessage{}
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}
