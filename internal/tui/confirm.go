package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/daslaller/necbuild/internal/sbpm"
)

// ErrNoInteraction is returned when a confirmation is needed but no terminal
// is attached.
var ErrNoInteraction = errors.New("confirmation needs an interactive terminal (set NECBUILD_ASSUME_YES=1 to skip it)")

// ErrCancelled is returned when the prompt is aborted with ctrl+c or esc.
var ErrCancelled = errors.New("cancelled")

type confirmKeys struct {
	Yes    key.Binding
	No     key.Binding
	Cancel key.Binding
}

var defaultConfirmKeys = confirmKeys{
	Yes:    key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
	No:     key.NewBinding(key.WithKeys("n", "N", "enter"), key.WithHelp("n/enter", "no")),
	Cancel: key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "cancel")),
}

// confirmModel is a bubbletea model for yes/no confirmation. The default
// answer is no.
type confirmModel struct {
	question  string
	keys      confirmKeys
	confirmed bool
	cancelled bool
	answered  bool
}

func newConfirmModel(question string) *confirmModel {
	return &confirmModel{question: question, keys: defaultConfirmKeys}
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.confirmed = true
			m.answered = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.No):
			m.answered = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	if m.answered || m.cancelled {
		return ""
	}
	return accentStyle.Render("?") + " " + m.question + " " + mutedStyle.Render("[y/N]") + " "
}

// PromptConfirmer asks on a terminal.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptConfirmer) Confirm(ctx context.Context, description string) (bool, error) {
	m := newConfirmModel(description)
	prog := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	if _, err := prog.Run(); err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}
	if m.cancelled {
		return false, ErrCancelled
	}
	if m.confirmed {
		fmt.Fprintf(p.Out, "%s %s %s\n", accentStyle.Render("?"), description, successStyle.Render("yes"))
	}
	return m.confirmed, nil
}

// NewConfirmer picks how missing packages get approved: automatically when
// assumeYes is set, by prompt when interactive, and otherwise not at all.
func NewConfirmer(assumeYes, interactive bool, in io.Reader, out io.Writer) sbpm.Confirmer {
	switch {
	case assumeYes:
		return sbpm.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	case interactive:
		return PromptConfirmer{In: in, Out: out}
	default:
		return sbpm.ConfirmFunc(func(context.Context, string) (bool, error) { return false, ErrNoInteraction })
	}
}
