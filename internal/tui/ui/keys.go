package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap contains the key bindings of the interactive prompts.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	// Vim-style navigation
	VimUp   key.Binding
	VimDown key.Binding

	// Selection
	Select key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home/g", "go to start"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end/G", "go to end"),
		),
		VimUp: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "up"),
		),
		VimDown: key.NewBinding(
			key.WithKeys("j"),
			key.WithHelp("j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// IsUp returns true if the key message matches an up navigation key.
func (k KeyMap) IsUp(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.Up) || key.Matches(msg, k.VimUp)
}

// IsDown returns true if the key message matches a down navigation key.
func (k KeyMap) IsDown(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.Down) || key.Matches(msg, k.VimDown)
}

// Help renders the given bindings as a one-line hint.
func (k KeyMap) Help(styles Styles, bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += styles.Help.Render(" • ")
		}
		h := b.Help()
		out += styles.HelpKey.Render(h.Key) + " " + styles.Help.Render(h.Desc)
	}
	return out
}
