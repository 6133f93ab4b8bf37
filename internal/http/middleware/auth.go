package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/http/response"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/ctxutil"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	middlewareLogger := log.With("middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

// RequireAuth stops the chain with 401 unless the request carries a valid
// session token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.AbortWithError(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, errors.New("missing session token"))
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("Rejected session token", "path", c.Request.URL.Path, "error", err)
			var ae *apierr.Error
			if errors.As(err, &ae) {
				response.AbortWithError(c, ae.Status, ae.Code, ae.Err)
				return
			}
			response.AbortWithError(c, http.StatusUnauthorized, apierr.CodeInvalidCredential, errors.New("invalid session token"))
			return
		}
		if ctxutil.UserID(ctx) == uuid.Nil {
			response.AbortWithError(c, http.StatusUnauthorized, apierr.CodeInvalidCredential, errors.New("invalid session token"))
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// streamPath is the only route that accepts ?token=, since EventSource
// cannot set headers. Everywhere else the Authorization header is required.
const streamPath = "/api/sse/stream"

func extractTokenFromAll(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		if tok := strings.TrimSpace(authHeader[7:]); tok != "" {
			return tok
		}
	}
	if c.FullPath() == streamPath || c.Request.URL.Path == streamPath {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}
