package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/smartboard-backend/internal/http/response"
	"github.com/yungbote/smartboard-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/user/profile
func (uh *UserHandler) GetProfile(c *gin.Context) {
	me, err := uh.userService.GetMe(dbcFrom(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": newUserView(me)})
}

// GET /api/user/avatar
func (uh *UserHandler) GetAvatar(c *gin.Context) {
	png, err := uh.userService.RenderAvatar(dbcFrom(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
