package tfm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		family   Family
		platform string
		canon    string
	}{
		{input: "net48", family: FamilyNetFramework, canon: "net48"},
		{input: "net472", family: FamilyNetFramework, canon: "net472"},
		{input: "netstandard2.0", family: FamilyNetStandard, canon: "netstandard2.0"},
		{input: "netcoreapp3.1", family: FamilyNetCoreApp, canon: "netcoreapp3.1"},
		{input: "net8.0", family: FamilyNet, canon: "net8.0"},
		{input: "NET8.0-Windows", family: FamilyNet, platform: "windows", canon: "net8.0-windows"},
		{input: " net6.0 ", family: FamilyNet, canon: "net6.0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.family, f.Family())
			assert.Equal(t, tt.platform, f.Platform())
			assert.Equal(t, tt.canon, f.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "java8", "net4.8", "net48-windows", "netstandardX", "net4a"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrInvalidFramework)
		})
	}
}

func TestParseList(t *testing.T) {
	list, err := ParseList("net48; net8.0;")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "net48;net8.0", Join(list))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(MustParse("net48"), MustParse("net8.0")))
	assert.Equal(t, -1, Compare(MustParse("netstandard2.0"), MustParse("netcoreapp3.1")))
	assert.Equal(t, 1, Compare(MustParse("net8.0"), MustParse("net6.0")))
	assert.Equal(t, 1, Compare(MustParse("net472"), MustParse("net47")))
	assert.Equal(t, 0, Compare(MustParse("net8.0-windows"), MustParse("net8.0")))
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		declared string
		target   string
		want     bool
	}{
		{"net8.0", "net8.0", true},
		{"net9.0", "net8.0", true},
		{"net6.0", "net8.0", false},
		{"net48", "net8.0", false},
		{"net8.0-windows", "net8.0", true},
		{"net8.0", "net8.0-windows", false},
		{"net8.0-windows", "net8.0-windows", true},
		{"netstandard2.0", "netstandard2.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.declared+"->"+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(tt.declared).Satisfies(MustParse(tt.target)))
		})
	}
}

func TestCompatibleWith(t *testing.T) {
	tests := []struct {
		asset  string
		target string
		want   bool
	}{
		{"net45", "net8.0", false},
		{"net45", "net48", true},
		{"netstandard2.0", "net8.0", true},
		{"netstandard2.0", "net48", true},
		{"netstandard2.1", "net48", false},
		{"netstandard2.1", "netcoreapp2.1", false},
		{"netstandard2.1", "netcoreapp3.1", true},
		{"netcoreapp3.1", "net8.0", true},
		{"net6.0", "net8.0", true},
		{"net9.0", "net8.0", false},
		{"net6.0-windows", "net8.0", false},
		{"net6.0-windows", "net8.0-windows", true},
	}

	for _, tt := range tests {
		t.Run(tt.asset+"->"+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, CompatibleWith(MustParse(tt.asset), MustParse(tt.target)))
		})
	}
}

func TestWithPlatform(t *testing.T) {
	f := MustParse("net8.0").WithPlatform("Windows")
	assert.Equal(t, "net8.0-windows", f.String())
	assert.True(t, f.IsWindows())
	assert.Equal(t, "net8.0", f.Base().String())

	fx := MustParse("net48").WithPlatform("windows")
	assert.Equal(t, "net48", fx.String())
}

func TestMajor(t *testing.T) {
	assert.Equal(t, 8, MustParse("net8.0").Major())
	assert.Equal(t, 8, MustParse("net8.0-windows").Major())
	assert.Equal(t, 4, MustParse("net48").Major())
	assert.Equal(t, 2, MustParse("netstandard2.0").Major())
}
