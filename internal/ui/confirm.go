package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Prompter asks yes/no questions on a terminal. It satisfies
// workflow.Confirmer.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	// AssumeYes answers every prompt without reading input.
	AssumeYes bool
}

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// StdPrompter prompts on stdin/stdout.
func StdPrompter() *Prompter { return NewPrompter(os.Stdin, os.Stdout) }

// Confirm prints prompt and returns true for "y" or "yes".
func (p *Prompter) Confirm(prompt string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	style := StyleWarning
	if strings.Contains(prompt, "irreversible") {
		style = StyleError
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", style.Render(prompt))
	if p.AssumeYes {
		fmt.Fprintln(p.out, "y")
		return true
	}
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
