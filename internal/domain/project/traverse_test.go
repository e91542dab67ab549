package project_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(models []project.Model) []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.Name()
	}
	return out
}

func TestTraverse_PostOrder(t *testing.T) {
	lib2 := mocks.NewProject("Lib2", "net48")
	lib1 := mocks.NewProject("Lib1", "net48").WithReferences(lib2)
	app := mocks.NewProject("App", "net48").WithReferences(lib1)
	ws := mocks.NewWorkspace(lib2, lib1, app)

	ordered, err := project.Traverse(context.Background(), []project.Model{app}, ws)
	require.NoError(t, err)

	assert.Equal(t, []string{"Lib2", "Lib1", "App"}, names(ordered))
}

func TestTraverse_DiamondVisitsOnce(t *testing.T) {
	core := mocks.NewProject("Core", "net48")
	left := mocks.NewProject("Left", "net48").WithReferences(core)
	right := mocks.NewProject("Right", "net48").WithReferences(core)
	app := mocks.NewProject("App", "net48").WithReferences(left, right)
	ws := mocks.NewWorkspace(core, left, right, app)

	ordered, err := project.Traverse(context.Background(), []project.Model{app}, ws)
	require.NoError(t, err)

	assert.Equal(t, []string{"Core", "Left", "Right", "App"}, names(ordered))
	loadsOfCore := 0
	for _, path := range ws.Loads() {
		if path == core.FilePath() {
			loadsOfCore++
		}
	}
	assert.Equal(t, 1, loadsOfCore)
}

func TestTraverse_MultipleEntryPoints(t *testing.T) {
	shared := mocks.NewProject("Shared", "net48")
	web := mocks.NewProject("Web", "net48").WithReferences(shared)
	worker := mocks.NewProject("Worker", "net48").WithReferences(shared)
	ws := mocks.NewWorkspace(shared, web, worker)

	ordered, err := project.Traverse(context.Background(), []project.Model{web, worker}, ws)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shared", "Web", "Worker"}, names(ordered))
}

func TestTraverse_Cycle(t *testing.T) {
	a := mocks.NewProject("A", "net48")
	b := mocks.NewProject("B", "net48").WithReferences(a)
	a.WithReferences(b)
	ws := mocks.NewWorkspace(a, b)

	_, err := project.Traverse(context.Background(), []project.Model{a}, ws)

	require.ErrorIs(t, err, project.ErrReferenceCycle)
	var cycle *project.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Len(t, cycle.Path, 3)
}

func TestTraverse_MissingReference(t *testing.T) {
	ghost := mocks.NewProject("Ghost", "net48")
	app := mocks.NewProject("App", "net48").WithReferences(ghost)
	ws := mocks.NewWorkspace(app)

	_, err := project.Traverse(context.Background(), []project.Model{app}, ws)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestRoots(t *testing.T) {
	lib := mocks.NewProject("Lib", "net48")
	app := mocks.NewProject("App", "net48").WithReferences(lib)
	tests := mocks.NewProject("Tests", "net48").WithReferences(lib)

	roots := project.Roots([]project.Model{lib, app, tests})

	assert.Equal(t, []string{"App", "Tests"}, names(roots))
}
