package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"column:name;not null;default:''" json:"name"`
	Email        string    `gorm:"column:email;not null;default:'';index" json:"email"`
	GoogleSub    string    `gorm:"column:google_sub;not null;uniqueIndex" json:"-"`
	ProfileImage string    `gorm:"column:profile_image;not null;default:''" json:"profile_image"`
	AvatarColor  string    `gorm:"column:avatar_color;not null;default:''" json:"avatar_color"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
