package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

// Spinner animates a loading indicator on a single terminal line.
type Spinner struct {
	out  io.Writer
	mu   sync.Mutex
	msg  string
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a spinner that writes to out.
func NewSpinner(out io.Writer, msg string) *Spinner {
	return &Spinner{
		out:  out,
		msg:  msg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start begins the animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		t := time.NewTicker(80 * time.Millisecond)
		defer t.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s  %-60s", StyleFlame.Render(spinnerFrames[i%len(spinnerFrames)]), s.msg)
			s.mu.Unlock()
			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-64s\r", "")
				return
			case <-t.C:
			}
		}
	}()
}

// SetMessage replaces the text next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the spinner and waits for the line to clear. It is safe to
// call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// Progress renders workflow events: pending statuses drive a spinner and
// the outcome is printed once the run ends.
type Progress struct {
	out     io.Writer
	mu      sync.Mutex
	spinner *Spinner
}

// NewProgress writes to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

// Observe implements workflow.Observer.
func (p *Progress) Observe(ev workflow.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Status.Kind == workflow.StatusPending {
		// The confirmation prompt follows validation on the same terminal.
		if ev.Stage == workflow.Validating {
			return
		}
		if p.spinner == nil {
			p.spinner = NewSpinner(p.out, ev.Status.Message)
			p.spinner.Start()
		} else {
			p.spinner.SetMessage(ev.Status.Message)
		}
		if ev.Stage == workflow.Submitted && ev.Status.ExplorerURL != "" {
			p.spinner.SetMessage(ev.Status.Message + " " + Meta(ev.Status.ExplorerURL))
		}
		return
	}

	p.halt()
	if line := StatusLine(ev.Status); line != "" {
		fmt.Fprintln(p.out, line)
	}
}

// Close stops any running spinner.
func (p *Progress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halt()
}

func (p *Progress) halt() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}
