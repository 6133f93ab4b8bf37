package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Avatar    services.AvatarService
	User      services.UserService
	Lesson    services.LessonService
	Chat      services.ChatService
	Generator services.ScriptGenerator
	Notes     services.NotesService
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	avatar, err := services.NewAvatarService(log, cfg.Avatar.Palette, cfg.Avatar.FontPath)
	if err != nil {
		return Services{}, fmt.Errorf("init avatar service: %w", err)
	}

	var verifier services.OIDCVerifier
	if strings.TrimSpace(cfg.Auth.GoogleOIDCClientID) != "" {
		verifier, err = services.NewOIDCVerifier(clients.HTTPClient, cfg.Auth.GoogleOIDCClientID)
		if err != nil {
			return Services{}, fmt.Errorf("init oidc verifier: %w", err)
		}
	} else {
		log.Warn("GOOGLE_OIDC_CLIENT_ID not set; only the mock identity can sign in", "mock_allowed", cfg.MockTokenAllowed())
	}

	auth, err := services.NewAuthService(log, repos.User, verifier, avatar, services.AuthConfig{
		JWTSecretKey:   cfg.Auth.JWTSecretKey,
		SessionTTL:     cfg.Auth.SessionTTL,
		AllowMockToken: cfg.MockTokenAllowed(),
		MockToken:      cfg.Auth.MockToken,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	notify := services.NewLessonNotifier(&services.BusEmitter{Bus: clients.SSEBus, Log: log})
	extractor := services.NewContentExtractor(log, clients.GcpDocument)
	lesson := services.NewLessonService(log, repos.Lesson, extractor, clients.GcpBucket, notify)
	generator := services.NewScriptGenerator(log, clients.OpenaiClient, cfg.AI.MaxContextChars)

	var cache services.NotesCache
	if clients.Redis != nil {
		cache = services.NewRedisNotesCache(clients.Redis, "")
	} else {
		cache = services.NewMemoryNotesCache()
	}

	return Services{
		Auth:      auth,
		Avatar:    avatar,
		User:      services.NewUserService(log, repos.User, avatar),
		Lesson:    lesson,
		Chat:      services.NewChatService(log, repos.Lesson, repos.ChatMessage, notify),
		Generator: generator,
		Notes:     services.NewNotesService(log, lesson, generator, cache, cfg.AI.NotesCacheTTL),
	}, nil
}
