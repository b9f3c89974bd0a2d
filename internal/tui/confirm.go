package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-isatty"
)

// Prompter asks for confirmation on a terminal, falling back to reading a
// y/N line when In is not a TTY.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	// Details are shown under the question, e.g. the planned steps.
	Details []string

	isTTY func() bool
}

func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr}
}

func (p *Prompter) interactive() bool {
	if p.isTTY != nil {
		return p.isTTY()
	}
	f, ok := p.In.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Confirm implements update.Confirmer.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if !p.interactive() {
		return p.confirmLine(question)
	}

	prog := tea.NewProgram(NewConfirmModel(question, p.Details),
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	final, err := prog.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Confirmed(), nil
}

func (p *Prompter) confirmLine(question string) (bool, error) {
	for _, d := range p.Details {
		fmt.Fprintln(p.Out, "  "+d)
	}
	fmt.Fprintf(p.Out, "%s [y/N]: ", question)

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
