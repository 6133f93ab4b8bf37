package services

import (
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/data/repos"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/ctxutil"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

type UserService interface {
	GetMe(dbc dbctx.Context) (*types.User, error)
	RenderAvatar(dbc dbctx.Context) ([]byte, error)
}

type userService struct {
	log           *logger.Logger
	userRepo      repos.UserRepo
	avatarService AvatarService
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo, avatarService AvatarService) UserService {
	return &userService{
		log:           log.With("service", "UserService"),
		userRepo:      userRepo,
		avatarService: avatarService,
	}
}

func (us *userService) GetMe(dbc dbctx.Context) (*types.User, error) {
	userID := ctxutil.UserID(dbc.Ctx)
	if userID == uuid.Nil {
		us.log.Warn("User id not set in request data")
		return nil, apierr.Unauthenticated(nil)
	}
	user, err := us.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("error fetching user: %w", err))
	}
	if user == nil {
		return nil, apierr.NotFound("user")
	}
	return user, nil
}

func (us *userService) RenderAvatar(dbc dbctx.Context) ([]byte, error) {
	user, err := us.GetMe(dbc)
	if err != nil {
		return nil, err
	}
	if us.avatarService == nil {
		return nil, apierr.NotFound("avatar")
	}
	png, err := us.avatarService.RenderPNG(user)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return png, nil
}
