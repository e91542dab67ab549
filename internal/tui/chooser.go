package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/tui/components"
	"github.com/felixgeelhaar/uplift/internal/tui/ui"
)

// chooserModel is the Bubble Tea model behind Chooser.
type chooserModel struct {
	prompt    string
	list      components.List
	keys      ui.KeyMap
	styles    ui.Styles
	chosen    int
	cancelled bool
}

func newChooserModel(prompt string, choices []ports.Choice) chooserModel {
	items := make([]components.ListItem, len(choices))
	for i, c := range choices {
		items[i] = components.ListItem{Key: c.Key, Title: c.Label, Description: c.Description}
	}
	styles := ui.DefaultStyles()
	return chooserModel{
		prompt: prompt,
		list:   components.NewList(items).WithStyles(styles),
		keys:   ui.DefaultKeyMap(),
		styles: styles,
		chosen: -1,
	}
}

func (m chooserModel) Init() tea.Cmd {
	return nil
}

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) || key.Matches(msg, m.keys.Cancel) {
			m.cancelled = true
			return m, tea.Quit
		}
	case components.ListSelectedMsg:
		m.chosen = msg.Index
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m chooserModel) View() string {
	if m.cancelled || m.chosen >= 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.prompt))
	b.WriteString("\n\n")
	b.WriteString(m.list.View())
	b.WriteString("\n\n")
	b.WriteString(m.keys.Help(m.styles, m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Quit))
	b.WriteString("\n")
	return b.String()
}

// Chooser is an interactive ports.Chooser showing a navigable list.
type Chooser struct {
	in  io.Reader
	out io.Writer
}

var _ ports.Chooser = (*Chooser)(nil)

// NewChooser creates a Chooser.
func NewChooser(opts ...PromptOption) *Chooser {
	p := applyPromptOptions(opts)
	return &Chooser{in: p.in, out: p.out}
}

// Choose implements ports.Chooser. Quitting the list returns
// ports.ErrNoChoice.
func (c *Chooser) Choose(ctx context.Context, prompt string, choices []ports.Choice) (ports.Choice, error) {
	if len(choices) == 0 {
		return ports.Choice{}, ports.ErrNoChoice
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.in != nil {
		opts = append(opts, tea.WithInput(c.in))
	}
	if c.out != nil {
		opts = append(opts, tea.WithOutput(c.out))
	}

	final, err := tea.NewProgram(newChooserModel(prompt, choices), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return ports.Choice{}, ctx.Err()
		}
		return ports.Choice{}, fmt.Errorf("prompt failed: %w", err)
	}

	m, ok := final.(chooserModel)
	if !ok {
		return ports.Choice{}, errors.New("unexpected model type")
	}
	if m.cancelled || m.chosen < 0 {
		return ports.Choice{}, ports.ErrNoChoice
	}
	return choices[m.chosen], nil
}

// AutoChooser answers every prompt without asking, for non-interactive runs.
// It picks the choice whose key is in Preferred, in order, or else the first.
type AutoChooser struct {
	Preferred []string
	Log       ports.Logger
}

var _ ports.Chooser = (*AutoChooser)(nil)

// Choose implements ports.Chooser.
func (a *AutoChooser) Choose(ctx context.Context, prompt string, choices []ports.Choice) (ports.Choice, error) {
	if len(choices) == 0 {
		return ports.Choice{}, ports.ErrNoChoice
	}
	choice := choices[0]
preferred:
	for _, key := range a.Preferred {
		for _, c := range choices {
			if c.Key == key {
				choice = c
				break preferred
			}
		}
	}
	if a.Log != nil {
		a.Log.Debug(ctx, "chose automatically", ports.F("prompt", prompt), ports.F("choice", choice.Key))
	}
	return choice, nil
}
