package app

import (
	smarthttp "github.com/yungbote/smartboard-backend/internal/http"
	httpH "github.com/yungbote/smartboard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/smartboard-backend/internal/http/middleware"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Realtime *httpH.RealtimeHandler
	Lesson   *httpH.LessonHandler
	Chat     *httpH.ChatHandler
	AI       *httpH.AIHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Auth:     httpH.NewAuthHandler(services.Auth),
		User:     httpH.NewUserHandler(services.User),
		Realtime: httpH.NewRealtimeHandler(log, sseHub),
		Lesson:   httpH.NewLessonHandler(services.Lesson, cfg.HTTP.UploadMaxBytes),
		Chat:     httpH.NewChatHandler(services.Chat),
		AI:       httpH.NewAIHandler(services.Generator, services.Lesson, services.Notes),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *smarthttp.Server {
	return smarthttp.NewServer(smarthttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.Otel.ServiceName,
		TracingEnabled:  cfg.Otel.Enabled,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		UserHandler:     handlers.User,
		RealtimeHandler: handlers.Realtime,
		LessonHandler:   handlers.Lesson,
		ChatHandler:     handlers.Chat,
		AIHandler:       handlers.AI,
	})
}
