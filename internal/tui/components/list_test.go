package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeItems() []ListItem {
	return []ListItem{
		{Key: "1", Title: "First", Description: "First item"},
		{Key: "2", Title: "Second", Description: "Second item"},
		{Key: "3", Title: "Third"},
	}
}

func TestNewList(t *testing.T) {
	t.Parallel()

	list := NewList(threeItems())

	assert.Len(t, list.Items(), 3)
	assert.Equal(t, 0, list.SelectedIndex())
	assert.Equal(t, "1", list.SelectedItem().Key)
}

func TestList_EmptyList(t *testing.T) {
	t.Parallel()

	list := NewList(nil)

	assert.Empty(t, list.Items())
	assert.Nil(t, list.SelectedItem())
	assert.Contains(t, list.View(), "No items")

	list, cmd := list.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, list.SelectedIndex())
}

func TestList_Navigation(t *testing.T) {
	t.Parallel()

	list := NewList(threeItems())

	list, _ = list.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, list.SelectedIndex())

	list, _ = list.Update(tea.KeyMsg{Type: tea.KeyDown})
	list, _ = list.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, list.SelectedIndex(), "stays at the end")

	list, _ = list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 1, list.SelectedIndex())

	list, _ = list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, list.SelectedIndex())

	list, _ = list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 2, list.SelectedIndex())
}

func TestList_Select(t *testing.T) {
	t.Parallel()

	list := NewList(threeItems())
	list, _ = list.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := list.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(ListSelectedMsg)
	require.True(t, ok)
	assert.Equal(t, "2", msg.Item.Key)
	assert.Equal(t, 1, msg.Index)
}

func TestList_SelectByNumber(t *testing.T) {
	t.Parallel()

	list := NewList(threeItems())

	list, cmd := list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	require.NotNil(t, cmd)
	assert.Equal(t, 2, list.SelectedIndex())
	assert.Equal(t, "3", cmd().(ListSelectedMsg).Item.Key)

	_, cmd = list.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'9'}})
	assert.Nil(t, cmd)
}

func TestList_SetSelected(t *testing.T) {
	t.Parallel()

	list := NewList(threeItems())

	list = list.SetSelected(2)
	assert.Equal(t, 2, list.SelectedIndex())

	list = list.SetSelected(10)
	assert.Equal(t, 2, list.SelectedIndex())

	list = list.SetSelected(-1)
	assert.Equal(t, 0, list.SelectedIndex())
}

func TestList_View(t *testing.T) {
	t.Parallel()

	view := NewList(threeItems()).View()

	assert.Contains(t, view, "1. First")
	assert.Contains(t, view, "First item")
	assert.Contains(t, view, "2. Second")
	assert.NotContains(t, view, "Second item", "only the selected description is shown")
}

func TestList_ViewScrolls(t *testing.T) {
	t.Parallel()

	list := NewList(threeItems()).WithHeight(2).SetSelected(2)
	view := list.View()

	assert.Equal(t, 2, list.Height())
	assert.NotContains(t, view, "First")
	assert.Contains(t, view, "3. Third")
}
