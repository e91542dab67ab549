package fixers

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/felixgeelhaar/uplift/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homeController = `using System;
using System.Web.Mvc;

namespace App.Controllers
{
    public class HomeController : Controller
    {
        public string User => HttpContext.Current.User.Identity.Name;
    }
}
`

const itemModel = `using System.Web.Mvc;

public class Item
{
    [AllowHtml]
    public string Body { get; set; }
}
`

func newProvider(t *testing.T) (*Provider, *mocks.FileSystem) {
	t.Helper()
	fs := mocks.NewFileSystem()
	fs.AddFile("/repo/App/Controllers/HomeController.cs", homeController)
	fs.AddFile("/repo/App/Models/Item.cs", itemModel)
	fs.AddFile("/repo/App/obj/Debug/Generated.cs", "using System.Web.Mvc;\n")
	fs.AddFile("/repo/App/Views/Index.cshtml", "@using System.Web.Mvc;\n")

	builtin, err := BuiltinRules()
	require.NoError(t, err)
	rules, err := Compile(builtin)
	require.NoError(t, err)
	return NewProvider(fs, rules, nil), fs
}

func TestProvider_Diagnose(t *testing.T) {
	t.Parallel()
	p, _ := newProvider(t)

	ds, err := p.Diagnose(context.Background(), "/repo/App")
	require.NoError(t, err)

	require.Len(t, ds, 3)
	assert.Equal(t, ports.Diagnostic{
		ID:      "UA0001",
		Title:   "Replace System.Web.Mvc namespace with Microsoft.AspNetCore.Mvc",
		Risk:    "low",
		Files:   []string{"/repo/App/Controllers/HomeController.cs", "/repo/App/Models/Item.cs"},
		Count:   2,
		Fixable: true,
	}, ds[0])
	assert.Equal(t, "UA0005", ds[1].ID)
	assert.Equal(t, "UA0006", ds[2].ID)
	assert.False(t, ds[2].Fixable)
	assert.Equal(t, "medium", ds[2].Risk)
}

func TestProvider_Rules(t *testing.T) {
	t.Parallel()
	p, _ := newProvider(t)

	rules := p.Rules()
	require.Len(t, rules, 5)
	assert.Equal(t, "UA0001", rules[0].ID)
	assert.True(t, rules[0].Fixable)
	assert.Equal(t, "UA0012", rules[4].ID)
	assert.False(t, rules[4].Fixable)
	assert.Equal(t, "high", rules[4].Risk)
	assert.Zero(t, rules[0].Count)
}

func TestProvider_Fix(t *testing.T) {
	t.Parallel()
	p, fs := newProvider(t)
	ctx := context.Background()

	result, err := p.Fix(ctx, "/repo/App", ports.Diagnostic{ID: "UA0001"})
	require.NoError(t, err)
	assert.Equal(t, ports.FixResult{FilesChanged: 2, Replacements: 2}, result)

	data, err := fs.ReadFile("/repo/App/Models/Item.cs")
	require.NoError(t, err)
	assert.Contains(t, string(data), "using Microsoft.AspNetCore.Mvc;")

	generated, err := fs.ReadFile("/repo/App/obj/Debug/Generated.cs")
	require.NoError(t, err)
	assert.Equal(t, "using System.Web.Mvc;\n", string(generated), "build output is never touched")

	_, err = p.Fix(ctx, "/repo/App", ports.Diagnostic{ID: "UA0005"})
	require.NoError(t, err)
	data, err = fs.ReadFile("/repo/App/Models/Item.cs")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "AllowHtml")

	ds, err := p.Diagnose(ctx, "/repo/App")
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "UA0006", ds[0].ID)
}

func TestProvider_FixErrors(t *testing.T) {
	t.Parallel()
	p, _ := newProvider(t)
	ctx := context.Background()

	_, err := p.Fix(ctx, "/repo/App", ports.Diagnostic{ID: "UA0006"})
	assert.ErrorContains(t, err, "by hand")

	_, err = p.Fix(ctx, "/repo/App", ports.Diagnostic{ID: "NOPE"})
	assert.ErrorContains(t, err, "unknown diagnostic")

	_, err = p.Diagnose(ctx, "/elsewhere")
	assert.Error(t, err)
}

func TestProvider_Preview(t *testing.T) {
	t.Parallel()
	p, fs := newProvider(t)
	ctx := context.Background()

	patch, err := p.Preview(ctx, "/repo/App", ports.Diagnostic{ID: "UA0001"})
	require.NoError(t, err)
	assert.Contains(t, patch, "--- a/Controllers/HomeController.cs")
	assert.Contains(t, patch, "+++ b/Controllers/HomeController.cs")
	assert.Contains(t, patch, "-using System.Web.Mvc;\n+using Microsoft.AspNetCore.Mvc;\n")
	assert.Contains(t, patch, "a/Models/Item.cs")

	data, err := fs.ReadFile("/repo/App/Models/Item.cs")
	require.NoError(t, err)
	assert.Equal(t, itemModel, string(data), "preview writes nothing")

	patch, err = p.Preview(ctx, "/repo/App", ports.Diagnostic{ID: "UA0006"})
	require.NoError(t, err)
	assert.Empty(t, patch)
}

func TestHunks(t *testing.T) {
	t.Parallel()

	hs := hunks("a\nb\nc\nd\n", "a\nB\nC\nd\n")
	require.Len(t, hs, 1)
	assert.Equal(t, int32(2), hs[0].OrigStartLine)
	assert.Equal(t, int32(2), hs[0].OrigLines)
	assert.Equal(t, "-b\n-c\n+B\n+C\n", string(hs[0].Body))

	hs = hunks("a\nb\n", "a\n")
	require.Len(t, hs, 1)
	assert.Equal(t, int32(2), hs[0].OrigLines)
	assert.Equal(t, int32(1), hs[0].NewLines)

	assert.Empty(t, hunks("same\n", "same\n"))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		glob, rel string
		want      bool
	}{
		{"**/*.cs", "Program.cs", true},
		{"**/*.cs", "Controllers/Home.cs", true},
		{"**/*.cs", "Views/Index.cshtml", false},
		{"*.cs", "Controllers/Home.cs", false},
		{"Controllers/*.cs", "Controllers/Home.cs", true},
		{"**/Controllers/*.cs", "src/Controllers/Home.cs", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matches(tt.glob, tt.rel), "%s vs %s", tt.glob, tt.rel)
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	_, err := Compile([]config.FixRule{{ID: "BAD", Glob: "*.cs", Pattern: "("}})
	assert.ErrorContains(t, err, "BAD")

	rules, err := Compile([]config.FixRule{{ID: "X", Glob: "*.cs", Pattern: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "low", rules[0].Risk)
}

func TestMergeRules(t *testing.T) {
	t.Parallel()

	base := []config.FixRule{{ID: "A", Title: "a"}, {ID: "B", Title: "b"}}
	merged := MergeRules(base, []config.FixRule{{ID: "B", Title: "override"}, {ID: "C", Title: "c"}})

	require.Len(t, merged, 3)
	assert.Equal(t, "override", merged[1].Title)
	assert.Equal(t, "C", merged[2].ID)
	assert.Equal(t, "b", base[1].Title)
}
