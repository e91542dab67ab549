package fixers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/sourcegraph/go-diff/diff"
)

// Preview renders the changes Fix would make for d as a unified diff without
// writing anything. Manual diagnostics produce an empty preview.
func (p *Provider) Preview(ctx context.Context, dir string, d ports.Diagnostic) (string, error) {
	r, ok := p.rule(d.ID)
	if !ok {
		return "", fmt.Errorf("unknown diagnostic %s", d.ID)
	}
	if r.Manual {
		return "", nil
	}

	changes, err := p.rewrite(ctx, dir, r)
	if err != nil {
		return "", err
	}
	if len(changes) == 0 {
		return "", nil
	}

	fds := make([]*diff.FileDiff, 0, len(changes))
	for _, c := range changes {
		rel, err := filepath.Rel(dir, c.path)
		if err != nil {
			rel = c.path
		}
		rel = filepath.ToSlash(rel)
		fds = append(fds, &diff.FileDiff{
			OrigName: "a/" + rel,
			NewName:  "b/" + rel,
			Hunks:    hunks(string(c.before), string(c.after)),
		})
	}

	out, err := diff.PrintMultiFileDiff(fds)
	if err != nil {
		return "", fmt.Errorf("failed to render diff: %w", err)
	}
	return string(out), nil
}

func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func withNewline(line string) string {
	if strings.HasSuffix(line, "\n") {
		return line
	}
	return line + "\n"
}

// hunks diffs two versions of a file. When the line count is unchanged each
// run of changed lines becomes a hunk; otherwise the whole file is one hunk.
func hunks(before, after string) []*diff.Hunk {
	orig, next := splitLines(before), splitLines(after)

	if len(orig) != len(next) {
		var body strings.Builder
		for _, l := range orig {
			body.WriteString("-" + withNewline(l))
		}
		for _, l := range next {
			body.WriteString("+" + withNewline(l))
		}
		return []*diff.Hunk{{
			OrigStartLine: 1,
			OrigLines:     int32(len(orig)),
			NewStartLine:  1,
			NewLines:      int32(len(next)),
			Body:          []byte(body.String()),
		}}
	}

	var out []*diff.Hunk
	for i := 0; i < len(orig); {
		if orig[i] == next[i] {
			i++
			continue
		}
		start := i
		for i < len(orig) && orig[i] != next[i] {
			i++
		}
		var body strings.Builder
		for _, l := range orig[start:i] {
			body.WriteString("-" + withNewline(l))
		}
		for _, l := range next[start:i] {
			body.WriteString("+" + withNewline(l))
		}
		n := int32(i - start)
		out = append(out, &diff.Hunk{
			OrigStartLine: int32(start + 1),
			OrigLines:     n,
			NewStartLine:  int32(start + 1),
			NewLines:      n,
			Body:          []byte(body.String()),
		})
	}
	return out
}
