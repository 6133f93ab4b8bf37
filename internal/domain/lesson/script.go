package lesson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Action string

const (
	ActionExplaining Action = "explaining"
	ActionWriting    Action = "writing"
	ActionPointing   Action = "pointing"
	ActionIdle       Action = "idle"
)

// Actions lists the closed set accepted by the player, in schema order.
var Actions = []Action{ActionExplaining, ActionWriting, ActionPointing, ActionIdle}

// NormalizeAction maps anything outside the closed set to ActionIdle.
func NormalizeAction(raw string) Action {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionExplaining, ActionWriting, ActionPointing, ActionIdle:
		return a
	default:
		return ActionIdle
	}
}

type ScriptStep struct {
	Speech string `json:"speech"`
	Board  string `json:"board"`
	Action Action `json:"action"`
}

// Script is the ordered teaching plan of a lesson.
type Script []ScriptStep

var (
	ErrEmptyScript  = errors.New("script must contain at least one step")
	ErrEmptySpeech  = errors.New("script step speech must not be empty")
	errScriptFormat = errors.New("script must be a JSON array of steps")
)

// Normalize returns a copy with every action inside the closed set and steps
// without speech removed.
func (s Script) Normalize() Script {
	out := make(Script, 0, len(s))
	for _, st := range s {
		if strings.TrimSpace(st.Speech) == "" {
			continue
		}
		out = append(out, ScriptStep{
			Speech: st.Speech,
			Board:  st.Board,
			Action: NormalizeAction(string(st.Action)),
		})
	}
	return out
}

// Validate reports whether the script is playback-ready.
func (s Script) Validate() error {
	if len(s) == 0 {
		return ErrEmptyScript
	}
	for i, st := range s {
		if strings.TrimSpace(st.Speech) == "" {
			return fmt.Errorf("step %d: %w", i, ErrEmptySpeech)
		}
	}
	return nil
}

func (s Script) Encode() ([]byte, error) {
	if s == nil {
		s = Script{}
	}
	return json.Marshal(s)
}

// DecodeScript accepts a JSON array of steps or a JSON string that itself
// holds that array. Empty input and JSON null decode to an empty Script.
// Actions are normalized; speech is left as stored.
func DecodeScript(raw []byte) (Script, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", errScriptFormat, err)
		}
		return DecodeScript([]byte(inner))
	}
	if raw[0] != '[' {
		return nil, errScriptFormat
	}
	var steps Script
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("%w: %v", errScriptFormat, err)
	}
	for i := range steps {
		steps[i].Action = NormalizeAction(string(steps[i].Action))
	}
	return steps, nil
}
