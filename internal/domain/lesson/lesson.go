package lesson

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/smartboard-backend/internal/domain/user"
)

type Lesson struct {
	ID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID  `gorm:"type:uuid;not null;index:idx_lesson_user_created,priority:1" json:"user_id"`
	User   *user.User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	Topic      string `gorm:"column:topic;type:text;not null" json:"topic"`
	Content    string `gorm:"column:content;type:text;not null;default:''" json:"content"`
	SourceName string `gorm:"column:source_name;not null;default:''" json:"source_name,omitempty"`

	// Script is NULL until a script has been generated and attached.
	Script datatypes.JSON `gorm:"column:script" json:"-"`

	CreatedAt time.Time `gorm:"not null;index:idx_lesson_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Steps decodes the stored script. A lesson with no script yields an empty Script.
func (l *Lesson) Steps() (Script, error) {
	if l == nil {
		return nil, nil
	}
	return DecodeScript(l.Script)
}

// ContextText is what the AI sees as lesson context: the extracted content,
// falling back to the topic when no document was attached.
func (l *Lesson) ContextText() string {
	if l == nil {
		return ""
	}
	if l.Content != "" {
		return l.Content
	}
	return l.Topic
}
