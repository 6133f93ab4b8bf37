package domain

import (
	"github.com/yungbote/smartboard-backend/internal/domain/chat"
	"github.com/yungbote/smartboard-backend/internal/domain/lesson"
	"github.com/yungbote/smartboard-backend/internal/domain/user"
)

type User = user.User

type Lesson = lesson.Lesson
type Script = lesson.Script
type ScriptStep = lesson.ScriptStep
type Action = lesson.Action

type ChatMessage = chat.ChatMessage

const (
	ActionExplaining = lesson.ActionExplaining
	ActionWriting    = lesson.ActionWriting
	ActionPointing   = lesson.ActionPointing
	ActionIdle       = lesson.ActionIdle
)
