package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ProjectFileBuilder builds MSBuild project files for tests.
type ProjectFileBuilder struct {
	sdk        string
	outputType string
	frameworks []string
	packages   [][2]string
	references []string
	assemblies []string
}

// NewProjectFile starts a classic project targeting .NET Framework 4.8.
func NewProjectFile() *ProjectFileBuilder {
	return &ProjectFileBuilder{outputType: "Library", frameworks: []string{"net48"}}
}

// WithSdk makes the project SDK style.
func (b *ProjectFileBuilder) WithSdk(sdk string) *ProjectFileBuilder {
	b.sdk = sdk
	return b
}

// WithOutputType sets OutputType, such as Exe or Library.
func (b *ProjectFileBuilder) WithOutputType(kind string) *ProjectFileBuilder {
	b.outputType = kind
	return b
}

// WithFrameworks replaces the target frameworks.
func (b *ProjectFileBuilder) WithFrameworks(frameworks ...string) *ProjectFileBuilder {
	b.frameworks = frameworks
	return b
}

// WithPackage adds a PackageReference.
func (b *ProjectFileBuilder) WithPackage(name, version string) *ProjectFileBuilder {
	b.packages = append(b.packages, [2]string{name, version})
	return b
}

// WithProjectReference adds a ProjectReference with a Windows-style path.
func (b *ProjectFileBuilder) WithProjectReference(path string) *ProjectFileBuilder {
	b.references = append(b.references, strings.ReplaceAll(path, "/", `\`))
	return b
}

// WithAssembly adds a Reference to a framework assembly.
func (b *ProjectFileBuilder) WithAssembly(name string) *ProjectFileBuilder {
	b.assemblies = append(b.assemblies, name)
	return b
}

// Build renders the project file.
func (b *ProjectFileBuilder) Build() string {
	var sb strings.Builder
	if b.sdk != "" {
		fmt.Fprintf(&sb, "<Project Sdk=%q>\n", b.sdk)
	} else {
		sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
		sb.WriteString(`<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">` + "\n")
	}

	sb.WriteString("  <PropertyGroup>\n")
	fmt.Fprintf(&sb, "    <OutputType>%s</OutputType>\n", b.outputType)
	switch {
	case b.sdk == "" && len(b.frameworks) > 0:
		fmt.Fprintf(&sb, "    <TargetFrameworkVersion>%s</TargetFrameworkVersion>\n", frameworkVersion(b.frameworks[0]))
	case len(b.frameworks) == 1:
		fmt.Fprintf(&sb, "    <TargetFramework>%s</TargetFramework>\n", b.frameworks[0])
	case len(b.frameworks) > 1:
		fmt.Fprintf(&sb, "    <TargetFrameworks>%s</TargetFrameworks>\n", strings.Join(b.frameworks, ";"))
	}
	sb.WriteString("  </PropertyGroup>\n")

	if len(b.packages)+len(b.references)+len(b.assemblies) > 0 {
		sb.WriteString("  <ItemGroup>\n")
		for _, a := range b.assemblies {
			fmt.Fprintf(&sb, "    <Reference Include=%q />\n", a)
		}
		for _, p := range b.packages {
			fmt.Fprintf(&sb, "    <PackageReference Include=%q Version=%q />\n", p[0], p[1])
		}
		for _, r := range b.references {
			fmt.Fprintf(&sb, "    <ProjectReference Include=\"%s\" />\n", r)
		}
		sb.WriteString("  </ItemGroup>\n")
	}
	sb.WriteString("</Project>\n")
	return sb.String()
}

// frameworkVersion turns net472 into v4.7.2.
func frameworkVersion(moniker string) string {
	digits := strings.TrimPrefix(moniker, "net")
	return "v" + strings.Join(strings.Split(digits, ""), ".")
}

// SolutionBuilder builds classic .sln files for tests.
type SolutionBuilder struct {
	projects []string
}

// NewSolution starts an empty solution.
func NewSolution() *SolutionBuilder {
	return &SolutionBuilder{}
}

// WithProject adds a project by its path relative to the solution.
func (b *SolutionBuilder) WithProject(relPath string) *SolutionBuilder {
	b.projects = append(b.projects, relPath)
	return b
}

// Build renders the solution file.
func (b *SolutionBuilder) Build() string {
	var sb strings.Builder
	sb.WriteString("\nMicrosoft Visual Studio Solution File, Format Version 12.00\n")
	sb.WriteString("# Visual Studio Version 17\n")
	for i, p := range b.projects {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		fmt.Fprintf(&sb, "Project(\"{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}\") = \"%s\", \"%s\", \"{00000000-0000-0000-0000-%012d}\"\nEndProject\n",
			name, strings.ReplaceAll(p, "/", `\`), i+1)
	}
	sb.WriteString("Global\nEndGlobal\n")
	return sb.String()
}
