// Package player sequences a lesson script: it narrates each step, exposes
// the board for the current step and requests end-of-lesson notes once the
// last step is passed. It has no knowledge of how any of this is drawn.
package player

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/yungbote/smartboard-backend/internal/domain/lesson"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
)

const (
	MinNarration     = 2 * time.Second
	NarrationPerChar = 50 * time.Millisecond
)

var ErrNoSummarizer = errors.New("player: no summarizer configured")

// Narrator speaks a step. Narrate reports whether it will call done when the
// speech ends; when it returns false the player estimates the duration.
type Narrator interface {
	Narrate(text string, done func()) bool
}

// SummarizeFunc produces the end-of-lesson notes.
type SummarizeFunc func(ctx context.Context) (string, error)

type Options struct {
	Narrator  Narrator
	Summarize SummarizeFunc
	Log       *logger.Logger
	// Context is handed to Summarize. In-flight summaries are never cancelled
	// by the player itself.
	Context context.Context
	// AfterFunc schedules the estimated end of narration. Defaults to
	// time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
}

// EstimateNarration is used when the narrator cannot signal completion.
func EstimateNarration(speech string) time.Duration {
	return max(MinNarration, time.Duration(utf8.RuneCountInString(speech))*NarrationPerChar)
}

type Player struct {
	log       *logger.Logger
	narrator  Narrator
	summarize SummarizeFunc
	ctx       context.Context
	afterFunc func(time.Duration, func()) func() bool

	// Events run one at a time in arrival order. Whoever finds the queue idle
	// drains it; events posted meanwhile are appended.
	qmu      sync.Mutex
	queue    []func()
	draining bool

	mu        sync.RWMutex
	script    lesson.Script
	state     State
	shown     int
	gen       uint64
	narration uint64
	speaking  bool
	notes     string
	lastErr   error
	stopTimer func() bool
	observers []func(Snapshot)
}

func New(opts Options) *Player {
	p := &Player{
		log:       opts.Log,
		narrator:  opts.Narrator,
		summarize: opts.Summarize,
		ctx:       opts.Context,
		afterFunc: opts.AfterFunc,
		state:     Idle(),
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	p.log = p.log.With("component", "Player")
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	if p.afterFunc == nil {
		p.afterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	return p
}

// OnChange registers an observer called after every event that changes the
// snapshot. Observers run on the event path and must not block.
func (p *Player) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

func (p *Player) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Player) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Start begins playback at step 0. An empty or malformed script leaves the
// player untouched. Starting again replays from step 0 and discards any
// outstanding notes request.
//
// Events are applied in order on whichever goroutine is draining the queue.
// When another event is in flight (a narration timer or a notes result),
// Start returns before it is applied; observe OnChange rather than reading
// State straight after the call.
func (p *Player) Start(script lesson.Script) {
	steps := make(lesson.Script, len(script))
	for i, st := range script {
		steps[i] = lesson.ScriptStep{Speech: st.Speech, Board: st.Board, Action: lesson.NormalizeAction(string(st.Action))}
	}
	p.dispatch(func() {
		if err := steps.Validate(); err != nil {
			p.log.Debug("Ignoring start with unplayable script", "error", err)
			return
		}
		p.mu.Lock()
		p.gen++
		p.script = steps
		p.notes = ""
		p.lastErr = nil
		p.state = Playing(0)
		p.mu.Unlock()
		p.enterStep()
		p.emit()
	})
}

// Advance moves to the next step, or past the last step into AwaitingNotes.
// It does nothing in any other phase, so notes are requested at most once.
// Like Start, it is applied asynchronously when another event is in flight.
func (p *Player) Advance() {
	p.dispatch(func() {
		p.mu.Lock()
		st := p.state
		if st.Phase != PhasePlaying {
			p.mu.Unlock()
			return
		}
		if st.Index < len(p.script)-1 {
			p.state = Playing(st.Index + 1)
			p.mu.Unlock()
			p.enterStep()
			p.emit()
			return
		}
		p.state = AwaitingNotes()
		gen := p.gen
		p.mu.Unlock()
		p.requestNotes(gen)
		p.emit()
	})
}

// Reset returns to Idle, drops the loaded script and discards any pending
// narration or notes result.
func (p *Player) Reset() {
	p.dispatch(func() {
		p.mu.Lock()
		p.gen++
		p.narration++
		if p.stopTimer != nil {
			p.stopTimer()
			p.stopTimer = nil
		}
		p.script = nil
		p.shown = 0
		p.speaking = false
		p.notes = ""
		p.lastErr = nil
		p.state = Idle()
		p.mu.Unlock()
		p.emit()
	})
}

func (p *Player) enterStep() {
	p.mu.Lock()
	if p.stopTimer != nil {
		p.stopTimer()
		p.stopTimer = nil
	}
	p.narration++
	token := p.narration
	p.shown = p.state.Index
	speech := p.script[p.shown].Speech
	p.speaking = true
	p.mu.Unlock()

	done := func() { p.dispatch(func() { p.narrationDone(token) }) }
	if p.narrator != nil && p.narrator.Narrate(speech, done) {
		return
	}
	stop := p.afterFunc(EstimateNarration(speech), done)
	p.mu.Lock()
	if p.narration == token {
		p.stopTimer = stop
	}
	p.mu.Unlock()
}

// narrationDone clears Speaking only for the step currently shown.
func (p *Player) narrationDone(token uint64) {
	p.mu.Lock()
	if token != p.narration || !p.speaking {
		p.mu.Unlock()
		return
	}
	p.speaking = false
	p.stopTimer = nil
	p.mu.Unlock()
	p.emit()
}

func (p *Player) requestNotes(gen uint64) {
	if p.summarize == nil {
		p.mu.Lock()
		p.lastErr = ErrNoSummarizer
		p.mu.Unlock()
		return
	}
	summarize, ctx := p.summarize, p.ctx
	go func() {
		notes, err := summarize(ctx)
		p.dispatch(func() { p.notesArrived(gen, notes, err) })
	}()
}

// notesArrived drops results from an earlier playback. A failure keeps the
// player in AwaitingNotes; there is no retry.
func (p *Player) notesArrived(gen uint64, notes string, err error) {
	p.mu.Lock()
	if gen != p.gen || p.state.Phase != PhaseAwaitingNotes {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.lastErr = err
		p.mu.Unlock()
		p.log.Warn("Lesson notes failed", "error", err)
		p.emit()
		return
	}
	p.notes = notes
	p.lastErr = nil
	p.state = Finished()
	p.mu.Unlock()
	p.emit()
}

func (p *Player) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     p.state,
		Run:       p.gen,
		Steps:     len(p.script),
		Speaking:  p.speaking,
		Notes:     p.notes,
		LastError: p.lastErr,
	}
	if p.state.Phase != PhaseIdle && p.shown < len(p.script) {
		step := p.script[p.shown]
		s.Board = step.Board
		s.Speech = step.Speech
		s.Writing = step.Action == lesson.ActionWriting
	}
	if p.state.Phase == PhasePlaying {
		s.Control = ControlNext
		if p.state.Index == len(p.script)-1 {
			s.Control = ControlFinish
		}
	}
	return s
}

func (p *Player) emit() {
	p.mu.RLock()
	snap := p.snapshotLocked()
	observers := append([]func(Snapshot){}, p.observers...)
	p.mu.RUnlock()
	for _, fn := range observers {
		fn(snap)
	}
}

func (p *Player) dispatch(ev func()) {
	p.qmu.Lock()
	p.queue = append(p.queue, ev)
	if p.draining {
		p.qmu.Unlock()
		return
	}
	p.draining = true
	p.qmu.Unlock()

	for {
		p.qmu.Lock()
		if len(p.queue) == 0 {
			p.draining = false
			p.qmu.Unlock()
			return
		}
		next := p.queue[0]
		p.queue = p.queue[1:]
		p.qmu.Unlock()
		next()
	}
}
