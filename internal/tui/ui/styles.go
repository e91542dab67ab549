// Package ui provides shared styles and key bindings for the terminal UI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Catppuccin Mocha inspired).
var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"} // Blue
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#cba6f7"} // Mauve
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"} // Green
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"} // Yellow
	ColorError     = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"} // Red
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"} // Overlay0
	ColorText      = lipgloss.AdaptiveColor{Light: "#4c4f69", Dark: "#cdd6f4"} // Text
)

// Styles contains reusable lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	// Status styles, also used for step states
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style

	// List items
	ListItem       lipgloss.Style
	ListItemActive lipgloss.Style

	// Help text
	Help    lipgloss.Style
	HelpKey lipgloss.Style

	// Diff preview
	DiffAdd    lipgloss.Style
	DiffRemove lipgloss.Style
	DiffHeader lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),

		Subtitle: lipgloss.NewStyle().
			Foreground(ColorSecondary),

		Success: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		Warning: lipgloss.NewStyle().
			Foreground(ColorWarning),

		Error: lipgloss.NewStyle().
			Foreground(ColorError),

		Info: lipgloss.NewStyle().
			Foreground(ColorPrimary),

		Muted: lipgloss.NewStyle().
			Foreground(ColorMuted),

		ListItem: lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(ColorText),

		ListItemActive: lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(ColorPrimary).
			Bold(true),

		Help: lipgloss.NewStyle().
			Foreground(ColorMuted),

		HelpKey: lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true),

		DiffAdd: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		DiffRemove: lipgloss.NewStyle().
			Foreground(ColorError),

		DiffHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary),
	}
}
