package player

import "fmt"

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseAwaitingNotes
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePlaying:
		return "Playing"
	case PhaseAwaitingNotes:
		return "AwaitingNotes"
	case PhaseFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the tagged playback state. Index is meaningful only while
// Phase is PhasePlaying and is then always inside the script.
type State struct {
	Phase Phase
	Index int
}

func (s State) String() string {
	if s.Phase == PhasePlaying {
		return fmt.Sprintf("Playing(%d)", s.Index)
	}
	return s.Phase.String()
}

func Idle() State          { return State{Phase: PhaseIdle} }
func Playing(i int) State  { return State{Phase: PhasePlaying, Index: i} }
func AwaitingNotes() State { return State{Phase: PhaseAwaitingNotes} }
func Finished() State      { return State{Phase: PhaseFinished} }

const (
	ControlNext   = "Next Step"
	ControlFinish = "Finish Lesson"
)

// Snapshot is everything a presentation layer needs to draw the player.
type Snapshot struct {
	State State
	// Run counts playbacks; every Start and Reset begins a new one, so the
	// same State in two runs is two different screens.
	Run      uint64
	Steps    int
	Board    string
	Speech   string
	Writing  bool
	Speaking bool
	Notes    string
	// Control is the label of the advance button, or "" when advancing does
	// nothing.
	Control   string
	LastError error
}
