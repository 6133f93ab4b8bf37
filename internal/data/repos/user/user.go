package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	"github.com/yungbote/smartboard-backend/internal/platform/dbctx"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) (*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByGoogleSub(dbc dbctx.Context, sub string) (*types.User, error)
	// FindOrCreateByGoogleSub inserts u unless a row with the same google_sub
	// exists, then returns the stored row. created reports whether u was inserted.
	FindOrCreateByGoogleSub(dbc dbctx.Context, u *types.User) (stored *types.User, created bool, err error)
	UpdateAvatarColor(dbc dbctx.Context, id uuid.UUID, color string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, u *types.User) (*types.User, error) {
	if u == nil {
		return nil, fmt.Errorf("user required")
	}
	if err := dbc.Conn(r.db).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.User
	err := dbc.Conn(r.db).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *userRepo) GetByGoogleSub(dbc dbctx.Context, sub string) (*types.User, error) {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return nil, nil
	}
	var row types.User
	err := dbc.Conn(r.db).Where("google_sub = ?", sub).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *userRepo) FindOrCreateByGoogleSub(dbc dbctx.Context, u *types.User) (*types.User, bool, error) {
	if u == nil || strings.TrimSpace(u.GoogleSub) == "" {
		return nil, false, fmt.Errorf("google_sub required")
	}
	res := dbc.Conn(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "google_sub"}}, DoNothing: true}).
		Create(u)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	stored, err := r.GetByGoogleSub(dbc, u.GoogleSub)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("user with google_sub vanished after upsert")
	}
	if created {
		r.log.Debug("Created user", "user_id", stored.ID.String())
	}
	return stored, created, nil
}

func (r *userRepo) UpdateAvatarColor(dbc dbctx.Context, id uuid.UUID, color string) error {
	return dbc.Conn(r.db).
		Model(&types.User{}).
		Where("id = ?", id).
		Update("avatar_color", color).Error
}
