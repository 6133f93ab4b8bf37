package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/smartboard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/smartboard-backend/internal/http/middleware"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	UserHandler     *httpH.UserHandler
	RealtimeHandler *httpH.RealtimeHandler

	LessonHandler *httpH.LessonHandler
	ChatHandler   *httpH.ChatHandler
	AIHandler     *httpH.AIHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/exchange", cfg.AuthHandler.Exchange)
			api.POST("/auth/google", cfg.AuthHandler.Exchange)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// User
		if cfg.UserHandler != nil {
			protected.GET("/user/profile", cfg.UserHandler.GetProfile)
			protected.GET("/user/avatar", cfg.UserHandler.GetAvatar)
		}

		// Lessons
		if cfg.LessonHandler != nil {
			protected.GET("/lessons", cfg.LessonHandler.ListLessons)
			protected.POST("/lesson/topic", cfg.LessonHandler.CreateFromTopic)
			protected.POST("/lesson/upload", cfg.LessonHandler.Upload)
			protected.PUT("/lesson/:id", cfg.LessonHandler.AttachScript)
			protected.GET("/lesson/:id", cfg.LessonHandler.GetLesson)
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.POST("/chat/message", cfg.ChatHandler.SaveMessage)
			protected.GET("/chat/:lessonId", cfg.ChatHandler.ListMessages)
		}

		// AI proxy
		if cfg.AIHandler != nil {
			protected.POST("/ai/script", cfg.AIHandler.Script)
			protected.POST("/ai/answer", cfg.AIHandler.Answer)
			protected.POST("/ai/notes", cfg.AIHandler.Notes)
		}
	}

	return r
}
