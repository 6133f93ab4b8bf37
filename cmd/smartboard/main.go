// Command smartboard is a terminal client for the lesson API. It prints the
// board and the narration for each step and reads commands from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/smartboard-backend/internal/classroom"
	"github.com/yungbote/smartboard-backend/internal/client"
	"github.com/yungbote/smartboard-backend/internal/platform/envutil"
	"github.com/yungbote/smartboard-backend/internal/platform/logger"
	"github.com/yungbote/smartboard-backend/internal/player"
)

const help = `commands:
  lessons          list your lessons
  new <topic>      create a lesson and start it
  upload <path>    create a lesson from a document
  open <id>        replay a stored lesson
  next             advance to the next step
  ask <question>   ask about the open lesson
  quit`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "smartboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log, err := logger.New(envutil.String("LOG_MODE", "test"))
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hc := &http.Client{Timeout: envutil.Duration("SMARTBOARD_HTTP_TIMEOUT", client.DefaultTimeout)}
	anon := client.New(hc, client.Session{BaseURL: envutil.String("SMARTBOARD_URL", "http://localhost:8080")})
	sess, err := anon.Exchange(ctx, envutil.String("SMARTBOARD_ID_TOKEN", "mock-google-token"))
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	api := anon.WithSession(sess)

	out := &screen{w: os.Stdout}
	fmt.Fprintf(out.w, "signed in as %s\n%s\n", sess.User.Name, help)

	room := classroom.New(api, classroom.Options{
		Narrator: out,
		Log:      log,
		OnChange: out.render,
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		out.prompt()
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(cmd) {
		case "":
		case "quit", "exit":
			return nil
		case "help":
			out.println(help)
		case "lessons":
			ls, err := api.ListLessons(ctx)
			if err != nil {
				out.println("error: " + err.Error())
				continue
			}
			for _, l := range ls {
				out.println(fmt.Sprintf("%s  %-30s  %d steps  %s", l.ID, l.Topic, len(l.Script), l.CreatedAt.Format(time.DateTime)))
			}
		case "new":
			if arg == "" {
				out.println("usage: new <topic>")
				continue
			}
			out.println("generating lesson...")
			if _, err := room.CreateLesson(ctx, arg, ""); err != nil {
				out.println("error: " + err.Error())
			}
		case "upload":
			if err := upload(ctx, room, arg); err != nil {
				out.println("error: " + err.Error())
			}
		case "open":
			id, err := uuid.Parse(arg)
			if err != nil {
				out.println("usage: open <lesson id>")
				continue
			}
			if _, err := room.OpenLesson(ctx, id); err != nil {
				out.println("error: " + err.Error())
			}
		case "next":
			if err := room.Advance(); err != nil {
				out.println("open or create a lesson first")
			}
		case "ask":
			answer, err := room.Ask(ctx, arg)
			if err != nil {
				out.println("answer failed: " + err.Error())
				continue
			}
			out.println("AI: " + answer)
		default:
			out.println("unknown command " + cmd)
		}
	}
}

func upload(ctx context.Context, room *classroom.Classroom, path string) error {
	if path == "" {
		return fmt.Errorf("usage: upload <path>")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = room.CreateLessonFromUpload(ctx, filepath.Base(path), f, "")
	return err
}

// screen prints player snapshots. Speech is printed with the board rather
// than spoken, so the player falls back to its estimated duration.
type screen struct {
	mu      sync.Mutex
	w       io.Writer
	lastRun uint64
	last    player.State
	err     error
}

func (s *screen) Narrate(string, func()) bool { return false }

func (s *screen) render(snap player.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.LastError != nil && snap.LastError != s.err {
		s.err = snap.LastError
		fmt.Fprintf(s.w, "\nnotes failed: %v\n", snap.LastError)
	}
	// Narration updates repeat the state; a new playback of the same step does not.
	if snap.Run == s.lastRun && snap.State == s.last {
		return
	}
	s.lastRun, s.last = snap.Run, snap.State
	switch snap.State.Phase {
	case player.PhasePlaying:
		fmt.Fprintf(s.w, "\n── step %d/%d ──\n%s\n\n» %s\n", snap.State.Index+1, snap.Steps, snap.Board, snap.Speech)
		if snap.Writing {
			fmt.Fprintln(s.w, "(writing on the board)")
		}
		fmt.Fprintf(s.w, "[next: %s]\n", snap.Control)
	case player.PhaseAwaitingNotes:
		fmt.Fprintln(s.w, "\npreparing your notes...")
	case player.PhaseFinished:
		fmt.Fprintf(s.w, "\n── notes ──\n%s\n", snap.Notes)
	}
}

func (s *screen) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

func (s *screen) prompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.w, "> ")
}
