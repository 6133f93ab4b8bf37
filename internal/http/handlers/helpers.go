package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/http/response"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/ctxutil"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
)

func dbcFrom(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// callerID is always set behind RequireAuth; the check keeps a handler
// mounted without it from acting as uuid.Nil.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	id := ctxutil.UserID(c.Request.Context())
	if id == uuid.Nil {
		response.RespondServiceError(c, apierr.Unauthenticated(nil))
		return uuid.Nil, false
	}
	return id, true
}

// lessonIDParam treats a malformed id like a missing lesson.
func lessonIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondServiceError(c, apierr.NotFound("lesson"))
		return uuid.Nil, false
	}
	return id, true
}

func parseLessonID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.NotFound("lesson")
	}
	return id, nil
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondServiceError(c, apierr.Validation(errors.New("invalid request body")))
		return false
	}
	return true
}
