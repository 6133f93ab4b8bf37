package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	types "github.com/yungbote/smartboard-backend/internal/domain"
	lessondomain "github.com/yungbote/smartboard-backend/internal/domain/lesson"
	"github.com/yungbote/smartboard-backend/internal/platform/apierr"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/platform/openai"
)

const (
	DefaultMaxContextChars = 60000
	FallbackAnswer         = "I'm sorry, I couldn't process that."
	scriptSchemaName       = "lesson_script"
)

// Turn is one role-tagged chat entry. Role is "user" or "assistant".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type ScriptGenerator interface {
	GenerateScript(ctx context.Context, topic, content string) (types.Script, error)
	// AnswerQuestion is stateless: priorTurns, oldest first, is the whole history.
	AnswerQuestion(ctx context.Context, lessonContext, question string, priorTurns []Turn) (string, error)
	Summarize(ctx context.Context, lessonContent string) (string, error)
}

type scriptGenerator struct {
	log             *logger.Logger
	ai              openai.Client
	maxContextChars int
}

func NewScriptGenerator(log *logger.Logger, ai openai.Client, maxContextChars int) ScriptGenerator {
	if maxContextChars <= 0 {
		maxContextChars = DefaultMaxContextChars
	}
	return &scriptGenerator{
		log:             log.With("service", "ScriptGenerator"),
		ai:              ai,
		maxContextChars: maxContextChars,
	}
}

func scriptSchema() map[string]any {
	actions := make([]any, 0, len(lessondomain.Actions))
	for _, a := range lessondomain.Actions {
		actions = append(actions, string(a))
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"steps"},
		"properties": map[string]any{
			"steps": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"speech", "board", "action"},
					"properties": map[string]any{
						"speech": map[string]any{"type": "string"},
						"board":  map[string]any{"type": "string"},
						"action": map[string]any{"type": "string", "enum": actions},
					},
				},
			},
		},
	}
}

const scriptSystemPrompt = `You are a professional, friendly AI teacher.
Create a teaching script for a classroom lesson as a sequence of steps.
Each step has:
1. "speech": what the teacher says.
2. "board": what appears on the smartboard (Markdown supported).
3. "action": one of "explaining", "writing", "pointing", "idle".
Make it engaging, clear, and educational.`

func (g *scriptGenerator) GenerateScript(ctx context.Context, topic, content string) (types.Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apierr.Validation(fmt.Errorf("topic is required"))
	}
	var user strings.Builder
	user.WriteString("Topic: ")
	user.WriteString(topic)
	if c := g.truncate(content); c != "" {
		user.WriteString("\n\nContext from the uploaded document:\n")
		user.WriteString(c)
	}

	obj, err := g.ai.GenerateJSON(ctx, scriptSystemPrompt, user.String(), scriptSchemaName, scriptSchema())
	if err != nil {
		g.log.Warn("Script generation failed", "error", err)
		return nil, apierr.Upstream(fmt.Errorf("script generation failed: %w", err))
	}
	steps, err := decodeGeneratedSteps(obj)
	if err != nil {
		return nil, apierr.Upstream(err)
	}
	steps = steps.Normalize()
	if len(steps) == 0 {
		return nil, apierr.Upstream(fmt.Errorf("script generation returned no usable steps"))
	}
	return steps, nil
}

func decodeGeneratedSteps(obj map[string]any) (types.Script, error) {
	raw, ok := obj["steps"]
	if !ok {
		return nil, fmt.Errorf("model output missing steps")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var steps types.Script
	if err := json.Unmarshal(b, &steps); err != nil {
		return nil, fmt.Errorf("model output steps malformed: %w", err)
	}
	return steps, nil
}

func (g *scriptGenerator) AnswerQuestion(ctx context.Context, lessonContext, question string, priorTurns []Turn) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apierr.Validation(fmt.Errorf("question is required"))
	}
	system := "You are the AI teacher for this lesson.\n" +
		"Lesson context: " + g.truncate(lessonContext) + "\n" +
		"Answer student doubts clearly and concisely. Stay in character as a helpful teacher."

	turns := make([]openai.Message, 0, len(priorTurns)+1)
	for _, t := range priorTurns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		turns = append(turns, openai.Message{Role: normalizeTurnRole(t.Role), Content: t.Text})
	}
	turns = append(turns, openai.Message{Role: openai.RoleUser, Content: question})

	answer, err := g.ai.GenerateTextWithHistory(ctx, system, turns)
	if err != nil {
		g.log.Warn("Answer generation failed", "error", err)
		return "", apierr.Upstream(fmt.Errorf("answer generation failed: %w", err))
	}
	if strings.TrimSpace(answer) == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}

func normalizeTurnRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "assistant", "ai", "model", "teacher":
		return openai.RoleAssistant
	default:
		return openai.RoleUser
	}
}

func (g *scriptGenerator) Summarize(ctx context.Context, lessonContent string) (string, error) {
	lessonContent = strings.TrimSpace(lessonContent)
	if lessonContent == "" {
		return "", apierr.Validation(fmt.Errorf("lesson content is required"))
	}
	prompt := "Based on the following lesson content, generate a comprehensive summary and exam notes.\n" +
		"Use Markdown formatting with clear headings, bullet points, and key terms.\n\n" +
		"Content: " + g.truncate(lessonContent)
	notes, err := g.ai.GenerateText(ctx, "", prompt)
	if err != nil {
		g.log.Warn("Notes generation failed", "error", err)
		return "", apierr.Upstream(fmt.Errorf("notes generation failed: %w", err))
	}
	if strings.TrimSpace(notes) == "" {
		return "", apierr.Upstream(fmt.Errorf("notes generation returned no text"))
	}
	return notes, nil
}

// truncate caps s at maxContextChars runes.
func (g *scriptGenerator) truncate(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= g.maxContextChars {
		return s
	}
	r := []rune(s)
	return string(r[:g.maxContextChars])
}
