package catalog

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	net48  = []tfm.Framework{tfm.MustParse("net48")}
	net80  = []tfm.Framework{tfm.MustParse("net8.0")}
	nugets = deps.PackageReference{Name: "Newtonsoft.Json", Version: "12.0.3"}
)

func loadDefaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestCatalog_GetLatestVersion(t *testing.T) {
	t.Parallel()
	c := loadDefaultCatalog(t)
	ctx := context.Background()

	v, err := c.GetLatestVersion(ctx, "newtonsoft.json", net80)
	require.NoError(t, err)
	assert.Equal(t, "13.0.3", v)

	v, err = c.GetLatestVersion(ctx, "Microsoft.Data.SqlClient", net48)
	require.NoError(t, err)
	assert.Equal(t, "5.2.1", v)

	_, err = c.GetLatestVersion(ctx, "Microsoft.Windows.Compatibility", net48)
	assert.ErrorIs(t, err, deps.ErrNoCompatibleVersion)

	_, err = c.GetLatestVersion(ctx, "Nope", net80)
	assert.ErrorIs(t, err, deps.ErrPackageNotFound)
}

func TestCatalog_GetNewerVersions(t *testing.T) {
	t.Parallel()
	c := loadDefaultCatalog(t)

	vs, err := c.GetNewerVersions(context.Background(), "Newtonsoft.Json", "12.0.3")
	require.NoError(t, err)
	assert.Equal(t, []string{"13.0.1", "13.0.3"}, vs)

	vs, err = c.GetNewerVersions(context.Background(), "Newtonsoft.Json", "13.0.3")
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestCatalog_DoesPackageSupportTargets(t *testing.T) {
	t.Parallel()
	c := loadDefaultCatalog(t)
	ctx := context.Background()

	ok, err := c.DoesPackageSupportTargets(ctx, nugets, net80)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.DoesPackageSupportTargets(ctx, deps.PackageReference{Name: "Microsoft.Windows.Compatibility", Version: "6.0.7"}, net48)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.DoesPackageSupportTargets(ctx, deps.PackageReference{Name: "Newtonsoft.Json", Version: "1.0.0"}, net80)
	assert.ErrorIs(t, err, deps.ErrVersionNotFound)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad yaml":      "packages: {",
		"no name":       "packages:\n  - versions: []\n",
		"bad version":   "packages:\n  - name: A\n    versions:\n      - version: x.y\n",
		"bad framework": "packages:\n  - name: A\n    versions:\n      - version: 1.0.0\n        frameworks: [banana]\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile("/repo/catalog.yaml", "packages:\n  - name: Acme.Core\n    versions:\n      - version: 2.0.0\n        frameworks: [net8.0]\n")

	c, err := Load(fs, "/repo/catalog.yaml")
	require.NoError(t, err)
	v, err := c.GetLatestVersion(context.Background(), "Acme.Core", net80)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v)

	_, err = Load(fs, "/repo/missing.yaml")
	assert.Error(t, err)
}

func TestLayered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	local, err := Parse([]byte("packages:\n  - name: Newtonsoft.Json\n    versions:\n      - version: 99.0.0\n        frameworks: [net8.0]\n"))
	require.NoError(t, err)
	reg := NewLayered(local, nil, loadDefaultCatalog(t))

	v, err := reg.GetLatestVersion(ctx, "Newtonsoft.Json", net80)
	require.NoError(t, err)
	assert.Equal(t, "99.0.0", v, "first layer shadows later ones")

	v, err = reg.GetLatestVersion(ctx, "Serilog", net80)
	require.NoError(t, err)
	assert.Equal(t, "3.1.1", v)

	ok, err := reg.DoesPackageSupportTargets(ctx, nugets, net80)
	require.NoError(t, err)
	assert.True(t, ok, "unknown version falls through to the next layer")

	vs, err := reg.GetNewerVersions(ctx, "Serilog", "2.10.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"3.1.1"}, vs)

	_, err = reg.GetNewerVersions(ctx, "Nope", "1.0.0")
	assert.ErrorIs(t, err, deps.ErrPackageNotFound)

	_, err = reg.DoesPackageSupportTargets(ctx, deps.PackageReference{Name: "Newtonsoft.Json", Version: "not-a-version"}, net80)
	require.Error(t, err)
	assert.NotErrorIs(t, err, deps.ErrPackageNotFound)

	_, err = NewLayered().GetLatestVersion(ctx, "Serilog", net80)
	assert.ErrorIs(t, err, deps.ErrPackageNotFound)
}

func TestRestorer(t *testing.T) {
	t.Parallel()

	p := mocks.NewProject("App", "net48").WithPackages(
		deps.PackageReference{Name: "Microsoft.Extensions.Logging", Version: "8.0.0"},
		deps.PackageReference{Name: "Newtonsoft.Json", Version: "13.0.3"},
	)

	result, err := NewRestorer(loadDefaultCatalog(t)).Restore(context.Background(), p)
	require.NoError(t, err)

	names := make([]string, 0, len(result.Packages))
	for _, pkg := range result.Packages {
		names = append(names, pkg.Name)
	}
	assert.Equal(t, []string{
		"Microsoft.Extensions.DependencyInjection",
		"Microsoft.Extensions.DependencyInjection.Abstractions",
		"Microsoft.Extensions.Logging",
		"Newtonsoft.Json",
	}, names)
	assert.Empty(t, result.LockFilePath)
}
