// Package components provides reusable Bubble Tea components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/felixgeelhaar/uplift/internal/tui/ui"
)

// ListItem is a single entry of a List.
type ListItem struct {
	Key         string
	Title       string
	Description string
}

// ListSelectedMsg is sent when an item is selected.
type ListSelectedMsg struct {
	Item  ListItem
	Index int
}

// List is a navigable, numbered list. Digits 1-9 select an item directly.
type List struct {
	items    []ListItem
	selected int
	height   int
	keys     ui.KeyMap
	styles   ui.Styles
}

// NewList creates a new list with the given items.
func NewList(items []ListItem) List {
	return List{
		items:  items,
		height: 10,
		keys:   ui.DefaultKeyMap(),
		styles: ui.DefaultStyles(),
	}
}

// Items returns all items in the list.
func (l List) Items() []ListItem {
	result := make([]ListItem, len(l.items))
	copy(result, l.items)
	return result
}

// SelectedIndex returns the currently selected index.
func (l List) SelectedIndex() int {
	return l.selected
}

// SelectedItem returns the currently selected item, or nil if empty.
func (l List) SelectedItem() *ListItem {
	if len(l.items) == 0 {
		return nil
	}
	item := l.items[l.selected]
	return &item
}

// SetSelected sets the selected index, clamping to valid range.
func (l List) SetSelected(index int) List {
	if index >= len(l.items) {
		index = len(l.items) - 1
	}
	if index < 0 {
		index = 0
	}
	l.selected = index
	return l
}

// Height returns the number of visible rows.
func (l List) Height() int {
	return l.height
}

// WithHeight returns the list with a new height.
func (l List) WithHeight(height int) List {
	l.height = height
	return l
}

// WithStyles returns the list with custom styles.
func (l List) WithStyles(styles ui.Styles) List {
	l.styles = styles
	return l
}

// Init implements tea.Model.
func (l List) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (l List) Update(msg tea.Msg) (List, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		return l.handleKeyMsg(msg)
	}
	return l, nil
}

func (l List) handleKeyMsg(msg tea.KeyMsg) (List, tea.Cmd) {
	if len(l.items) == 0 {
		return l, nil
	}

	switch {
	case l.keys.IsUp(msg):
		if l.selected > 0 {
			l.selected--
		}
	case l.keys.IsDown(msg):
		if l.selected < len(l.items)-1 {
			l.selected++
		}
	case key.Matches(msg, l.keys.Home):
		l.selected = 0
	case key.Matches(msg, l.keys.End):
		l.selected = len(l.items) - 1
	case key.Matches(msg, l.keys.Select):
		return l, l.selectCmd()
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9':
		n := int(msg.Runes[0] - '1')
		if n < len(l.items) {
			l.selected = n
			return l, l.selectCmd()
		}
	}

	return l, nil
}

func (l List) selectCmd() tea.Cmd {
	item := l.items[l.selected]
	index := l.selected
	return func() tea.Msg {
		return ListSelectedMsg{Item: item, Index: index}
	}
}

// View implements tea.Model.
func (l List) View() string {
	if len(l.items) == 0 {
		return l.styles.Help.Render("No items")
	}

	visible := min(l.height, len(l.items))
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.items))

	var b strings.Builder
	for i := start; i < end; i++ {
		item := l.items[i]
		label := fmt.Sprintf("%d. %s", i+1, item.Title)
		if i == l.selected {
			b.WriteString(l.styles.ListItemActive.Render("▸ " + label))
			if item.Description != "" {
				b.WriteString("\n")
				b.WriteString(l.styles.Help.Render("      " + item.Description))
			}
		} else {
			b.WriteString(l.styles.ListItem.Render("  " + label))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
