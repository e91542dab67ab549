package project_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetSelector_Select(t *testing.T) {
	selector := project.TargetSelector{Default: tfm.MustParse("net8.0")}

	tests := []struct {
		name    string
		project *mocks.Project
		want    string
	}{
		{name: "library", project: mocks.NewProject("Lib", "net48"), want: "net8.0"},
		{name: "winexe head", project: mocks.NewProject("Desktop", "net48").WithKind(project.OutputWinExe), want: "net8.0-windows"},
		{name: "wpf library", project: mocks.NewProject("Controls", "net48").WithComponents(project.ComponentWPF), want: "net8.0-windows"},
		{name: "web", project: mocks.NewProject("Site", "net48").WithKind(project.OutputWeb).WithComponents(project.ComponentWeb), want: "net8.0"},
		{name: "netstandard library", project: mocks.NewProject("Contracts", "netstandard2.0"), want: "net8.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selector.Select(tt.project).String())
		})
	}
}

func TestTargetSelector_KeepNetStandard(t *testing.T) {
	selector := project.TargetSelector{Default: tfm.MustParse("net8.0"), KeepNetStandard: true}

	assert.Equal(t, "netstandard2.0", selector.Select(mocks.NewProject("Contracts", "netstandard2.0")).String())
	assert.Equal(t, "net8.0", selector.Select(mocks.NewProject("Lib", "net48")).String())
}

func TestIsDone(t *testing.T) {
	target := tfm.MustParse("net8.0")

	assert.False(t, project.IsDone(mocks.NewProject("Old", "net48"), target), "classic project")
	assert.False(t, project.IsDone(mocks.NewProject("Sdk48", "net48").WithSdkStyle("Microsoft.NET.Sdk"), target), "sdk style on old target")
	assert.True(t, project.IsDone(mocks.NewProject("New", "net8.0").WithSdkStyle("Microsoft.NET.Sdk"), target))
	assert.False(t, project.IsDone(mocks.NewProject("Multi", "net48", "net8.0").WithSdkStyle("Microsoft.NET.Sdk"), target), "multi-targeting keeps old tfm")
	assert.False(t, project.IsDone(mocks.NewProject("Empty").WithSdkStyle("Microsoft.NET.Sdk"), target), "no frameworks")
}

func TestResolver_Next(t *testing.T) {
	lib2 := mocks.NewProject("Lib2", "net8.0").WithSdkStyle("Microsoft.NET.Sdk")
	lib1 := mocks.NewProject("Lib1", "net48").WithReferences(lib2)
	app := mocks.NewProject("App", "net48").WithReferences(lib1).WithKind(project.OutputWinExe)
	ws := mocks.NewWorkspace(lib2, lib1, app)
	resolver := project.NewResolver(ws, project.TargetSelector{Default: tfm.MustParse("net8.0")})
	ctx := context.Background()

	next, err := resolver.Next(ctx, []project.Model{app})
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "Lib1", next.Project.Name())
	assert.Equal(t, "net8.0", next.Target.String())

	resolver.Exclude(lib1.FilePath())
	next, err = resolver.Next(ctx, []project.Model{app})
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "App", next.Project.Name())
	assert.Equal(t, "net8.0-windows", next.Target.String())
}

func TestResolver_AllDone(t *testing.T) {
	lib := mocks.NewProject("Lib", "net8.0").WithSdkStyle("Microsoft.NET.Sdk")
	app := mocks.NewProject("App", "net8.0").WithSdkStyle("Microsoft.NET.Sdk").WithReferences(lib)
	ws := mocks.NewWorkspace(lib, app)
	resolver := project.NewResolver(ws, project.TargetSelector{Default: tfm.MustParse("net8.0")})

	next, err := resolver.Next(context.Background(), []project.Model{app})
	require.NoError(t, err)
	assert.Nil(t, next)

	candidates, err := resolver.Candidates(context.Background(), []project.Model{app})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}
