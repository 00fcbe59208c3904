package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a status line on w until stopped or until its context
// ends. The message can change while it runs.
type Spinner struct {
	w      io.Writer
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	message string
	width   int // widest line drawn so far

	stopOnce sync.Once
	byCaller chan struct{}
	exited   chan struct{}
	running  bool
}

func newSpinner(ctx context.Context, w io.Writer, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:        w,
		ctx:      ctx,
		cancel:   cancel,
		message:  message,
		byCaller: make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Start begins drawing. It must be called at most once.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	go func() {
		defer close(s.exited)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-s.byCaller:
				return
			case <-s.ctx.Done():
				s.clear()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[frame%len(spinnerFrames)])
			}
		}
	}()
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(message string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop ends the animation and clears the line. Calling it again, or before
// Start, is allowed.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.byCaller)
		s.cancel()
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			<-s.exited
		}
		s.clear()
	})
}

// Cancelled reports whether the spinner's context ended before Stop was
// called.
func (s *Spinner) Cancelled() bool {
	select {
	case <-s.byCaller:
		return false
	default:
		return s.ctx.Err() != nil
	}
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.message)
	s.width = max(s.width, len(s.message)+2)
	fmt.Fprintf(s.w, "\r%s", line)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
}

// statusIsTerminal reports whether status output goes to a terminal.
func statusIsTerminal() bool {
	f, ok := statusOut.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// startSpinner returns a running spinner on status output, or nil when
// status output is not a terminal. A nil *Spinner is safe to use.
func startSpinner(ctx context.Context, message string) *Spinner {
	if !statusIsTerminal() {
		return nil
	}
	s := newSpinner(ctx, statusOut, message)
	s.Start()
	return s
}

// spin runs fn behind a spinner when status output is a terminal, and
// plainly otherwise.
func spin[T any](ctx context.Context, message string, fn func() (T, error)) (T, error) {
	s := startSpinner(ctx, message)
	v, err := fn()
	if s != nil && s.Cancelled() {
		s.Stop()
		printWarning("%s interrupted", strings.TrimSuffix(message, "..."))
	}
	s.Stop()
	return v, err
}
