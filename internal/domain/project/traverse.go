package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrReferenceCycle is returned when project references form a cycle.
var ErrReferenceCycle = errors.New("project reference cycle")

// CycleError names the projects forming a reference cycle.
type CycleError struct {
	Path []string
}

// Error implements error.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrReferenceCycle, strings.Join(e.Path, " -> "))
}

// Is matches ErrReferenceCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrReferenceCycle
}

// Traverse returns the projects reachable from entryPoints in post-order,
// so every project appears after the projects it references. Projects
// reachable through several paths appear once.
func Traverse(ctx context.Context, entryPoints []Model, loader Loader) ([]Model, error) {
	t := &traversal{
		loader:  loader,
		loaded:  make(map[string]Model),
		visited: make(map[string]bool),
		onStack: make(map[string]bool),
	}
	for _, entry := range entryPoints {
		t.loaded[Key(entry.FilePath())] = entry
	}
	for _, entry := range entryPoints {
		if err := t.visit(ctx, entry); err != nil {
			return nil, err
		}
	}
	return t.order, nil
}

type traversal struct {
	loader  Loader
	loaded  map[string]Model
	visited map[string]bool
	onStack map[string]bool
	stack   []string
	order   []Model
}

func (t *traversal) visit(ctx context.Context, m Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := Key(m.FilePath())
	if t.visited[key] {
		return nil
	}
	if t.onStack[key] {
		return &CycleError{Path: t.cycleFrom(key)}
	}

	t.onStack[key] = true
	t.stack = append(t.stack, key)

	for _, ref := range m.ProjectReferences() {
		child, err := t.load(ctx, ref)
		if err != nil {
			return err
		}
		if err := t.visit(ctx, child); err != nil {
			return err
		}
	}

	t.stack = t.stack[:len(t.stack)-1]
	t.onStack[key] = false
	t.visited[key] = true
	t.order = append(t.order, m)
	return nil
}

func (t *traversal) load(ctx context.Context, path string) (Model, error) {
	key := Key(path)
	if m, ok := t.loaded[key]; ok {
		return m, nil
	}
	if t.loader == nil {
		return nil, fmt.Errorf("cannot load referenced project %s: no loader", path)
	}
	m, err := t.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load referenced project %s: %w", path, err)
	}
	t.loaded[key] = m
	return m, nil
}

func (t *traversal) cycleFrom(key string) []string {
	for i, k := range t.stack {
		if k == key {
			path := append([]string{}, t.stack[i:]...)
			return append(path, key)
		}
	}
	return []string{key}
}

// Roots returns the projects not referenced by any other project in the set.
// They are the natural entry points of a solution.
func Roots(models []Model) []Model {
	referenced := make(map[string]bool)
	for _, m := range models {
		for _, ref := range m.ProjectReferences() {
			referenced[Key(ref)] = true
		}
	}
	var roots []Model
	for _, m := range models {
		if !referenced[Key(m.FilePath())] {
			roots = append(roots, m)
		}
	}
	return roots
}
