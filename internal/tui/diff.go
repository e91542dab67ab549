package tui

import (
	"strings"

	"github.com/felixgeelhaar/uplift/internal/tui/ui"
)

// RenderDiff colors a unified diff line by line.
func RenderDiff(patch string, styles ui.Styles) string {
	if patch == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(patch, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			lines[i] = styles.DiffHeader.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = styles.Info.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = styles.DiffAdd.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = styles.DiffRemove.Render(line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
