// Package msbuild reads and edits MSBuild project files and solutions.
package msbuild

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

const (
	packagesConfigFile  = "packages.config"
	centralPackagesFile = "Directory.Packages.props"

	webApplicationGUID = "{349c5851-65df-11da-9384-00065b846f21}"
)

// ErrNotLoaded is returned when a project is used before Load succeeded.
var ErrNotLoaded = errors.New("project not loaded")

// Project is a project file on disk. It implements project.Model.
type Project struct {
	mu   sync.RWMutex
	fs   ports.FileSystem
	path string

	doc           *document
	packages      *document
	packagesDirty bool
	indent        string
	centralInTree bool
}

var _ project.Model = (*Project)(nil)

// LoadProject reads path and its packages.config, if any.
func LoadProject(ctx context.Context, fs ports.FileSystem, path string) (*Project, error) {
	p := &Project{fs: fs, path: filepath.Clean(path)}
	if err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload implements deps.Mutable.
func (p *Project) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := p.fs.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", p.path, err)
	}
	doc, err := parseDocument(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", p.path, err)
	}
	if localName(doc.root.name) != "Project" {
		return fmt.Errorf("%s: root element is <%s>, not <Project>", p.path, doc.root.name)
	}

	var pkgs *document
	pkgPath := filepath.Join(filepath.Dir(p.path), packagesConfigFile)
	if p.fs.Exists(pkgPath) {
		data, err := p.fs.ReadFile(pkgPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", pkgPath, err)
		}
		if pkgs, err = parseDocument(data); err != nil {
			return fmt.Errorf("failed to parse %s: %w", pkgPath, err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = doc
	p.packages = pkgs
	p.packagesDirty = false
	p.indent = indentUnit(p.fs, p.path)
	p.centralInTree = p.findUp(centralPackagesFile)
	return nil
}

// Save implements deps.Mutable.
func (p *Project) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNotLoaded
	}

	if err := p.fs.WriteFile(p.path, p.doc.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.path, err)
	}
	if p.packages != nil && p.packagesDirty {
		pkgPath := filepath.Join(filepath.Dir(p.path), packagesConfigFile)
		if err := p.fs.WriteFile(pkgPath, p.packages.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", pkgPath, err)
		}
		p.packagesDirty = false
	}
	return nil
}

func (p *Project) findUp(name string) bool {
	for dir := filepath.Dir(p.path); ; dir = filepath.Dir(dir) {
		if p.fs.Exists(filepath.Join(dir, name)) {
			return true
		}
		if filepath.Dir(dir) == dir {
			return false
		}
	}
}

// Name returns the file name without extension.
func (p *Project) Name() string {
	base := filepath.Base(p.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FilePath returns the absolute project file path.
func (p *Project) FilePath() string { return p.path }

// Directory returns the project directory.
func (p *Project) Directory() string { return filepath.Dir(p.path) }

// property returns the value of the last unconditioned property name, as
// MSBuild lets later definitions win.
func (p *Project) property(name string) string {
	var value string
	for _, group := range p.doc.root.elements("PropertyGroup") {
		if _, conditional := group.attr("Condition"); conditional {
			continue
		}
		for _, el := range group.elements(name) {
			if _, conditional := el.attr("Condition"); conditional {
				continue
			}
			value = el.text()
		}
	}
	return value
}

func (p *Project) boolProperty(name string) bool {
	return strings.EqualFold(p.property(name), "true")
}

// items returns every item element of the given type across item groups.
func (p *Project) items(name string) []*element {
	var out []*element
	for _, group := range p.doc.root.elements("ItemGroup") {
		out = append(out, group.elements(name)...)
	}
	return out
}

// TargetFrameworks implements deps.Subject. Classic projects report their
// TargetFrameworkVersion as a .NET Framework moniker.
func (p *Project) TargetFrameworks() []tfm.Framework {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if v := p.property("TargetFrameworks"); v != "" {
		if fws, err := tfm.ParseList(v); err == nil {
			return fws
		}
	}
	if v := p.property("TargetFramework"); v != "" {
		if fw, err := tfm.Parse(v); err == nil {
			return []tfm.Framework{fw}
		}
	}
	if v := p.property("TargetFrameworkVersion"); v != "" {
		moniker := "net" + strings.ReplaceAll(strings.TrimPrefix(strings.ToLower(v), "v"), ".", "")
		if fw, err := tfm.Parse(moniker); err == nil {
			return []tfm.Framework{fw}
		}
	}
	return nil
}

// SetTargetFrameworks implements project.Model. A single framework is written
// as TargetFramework, several as TargetFrameworks.
func (p *Project) SetTargetFrameworks(frameworks []tfm.Framework) error {
	if len(frameworks) == 0 {
		return errors.New("at least one target framework is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNotLoaded
	}

	keep, drop := "TargetFramework", "TargetFrameworks"
	if len(frameworks) > 1 {
		keep, drop = drop, keep
	}

	value := tfm.Join(frameworks)
	set := false
	for _, g := range p.doc.root.elements("PropertyGroup") {
		for _, el := range g.elements(drop) {
			g.removeChild(el)
		}
		for _, el := range g.elements("TargetFrameworkVersion") {
			g.removeChild(el)
		}
		if _, conditional := g.attr("Condition"); conditional {
			continue
		}
		for _, el := range g.elements(keep) {
			if set {
				g.removeChild(el)
				continue
			}
			el.setText(value)
			set = true
		}
	}
	if set {
		return nil
	}

	el := newElement(keep)
	el.setText(value)
	p.propertyGroup().appendChild(el, p.indent)
	return nil
}

// propertyGroup returns the first unconditioned property group, creating one
// when none exists.
func (p *Project) propertyGroup() *element {
	for _, g := range p.doc.root.elements("PropertyGroup") {
		if _, conditional := g.attr("Condition"); !conditional {
			return g
		}
	}
	g := newElement("PropertyGroup")
	p.doc.root.appendChild(g, p.indent)
	return g
}

// itemGroup returns the first item group holding items of the given type,
// creating one when none exists.
func (p *Project) itemGroup(item string) *element {
	for _, g := range p.doc.root.elements("ItemGroup") {
		if _, conditional := g.attr("Condition"); conditional {
			continue
		}
		if g.first(item) != nil {
			return g
		}
	}
	g := newElement("ItemGroup")
	p.doc.root.appendChild(g, p.indent)
	return g
}

// ProjectReferences returns referenced projects as absolute paths.
func (p *Project) ProjectReferences() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []string
	for _, el := range p.items("ProjectReference") {
		include, ok := el.attr("Include")
		if !ok || include == "" {
			continue
		}
		out = append(out, resolvePath(p.Directory(), include))
	}
	return out
}

// resolvePath turns an MSBuild relative path into an absolute one.
func resolvePath(dir, include string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(include, `\`, "/"))
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(dir, rel)
}

// Sdk returns the project SDK, or "" for classic projects.
func (p *Project) Sdk() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sdk()
}

func (p *Project) sdk() string {
	if v, ok := p.doc.root.attr("Sdk"); ok {
		return strings.TrimSpace(v)
	}
	if el := p.doc.root.first("Sdk"); el != nil {
		if v, ok := el.attr("Name"); ok {
			return v
		}
	}
	for _, imp := range p.doc.root.elements("Import") {
		if v, ok := imp.attr("Sdk"); ok {
			return v
		}
	}
	return ""
}

// IsSdkStyle reports whether the project uses an MSBuild SDK.
func (p *Project) IsSdkStyle() bool {
	return p.Sdk() != ""
}

// OutputKind derives the build output from OutputType, the SDK and classic
// project type GUIDs.
func (p *Project) OutputKind() project.OutputKind {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isWeb() {
		return project.OutputWeb
	}
	switch strings.ToLower(p.property("OutputType")) {
	case "exe":
		return project.OutputExe
	case "winexe":
		return project.OutputWinExe
	default:
		return project.OutputLibrary
	}
}

func (p *Project) isWeb() bool {
	if strings.EqualFold(p.sdk(), "Microsoft.NET.Sdk.Web") {
		return true
	}
	return strings.Contains(strings.ToLower(p.property("ProjectTypeGuids")), webApplicationGUID)
}

// Components detects the application technologies the project uses.
func (p *Project) Components() []project.Component {
	p.mu.RLock()
	defer p.mu.RUnlock()

	refs := make(map[string]bool)
	for _, r := range p.assemblyReferences() {
		refs[r.Key()] = true
	}
	for _, r := range p.packageReferences() {
		refs[r.Key()] = true
	}
	hasRef := func(names ...string) bool {
		for _, n := range names {
			if refs[strings.ToLower(n)] {
				return true
			}
		}
		return false
	}

	var out []project.Component
	add := func(c project.Component, present bool) {
		if present {
			out = append(out, c)
		}
	}

	web := p.isWeb()
	add(project.ComponentWeb, web)
	add(project.ComponentWebForms, web && (hasRef("System.Web") || p.hasContent(".aspx")))
	add(project.ComponentWCF, hasRef("System.ServiceModel", "System.ServiceModel.Primitives", "System.ServiceModel.Http") || p.hasContent(".svc"))
	add(project.ComponentWinForms, p.boolProperty("UseWindowsForms") || hasRef("System.Windows.Forms"))
	add(project.ComponentWPF, p.boolProperty("UseWPF") || hasRef("PresentationFramework"))
	add(project.ComponentMaui, p.boolProperty("UseMaui"))
	return out
}

// hasContent reports whether a file item has the extension.
func (p *Project) hasContent(ext string) bool {
	for _, kind := range []string{"Content", "None", "Compile"} {
		for _, el := range p.items(kind) {
			include, _ := el.attr("Include")
			if strings.EqualFold(filepath.Ext(include), ext) {
				return true
			}
		}
	}
	return false
}

// UsesCentralPackageManagement implements project.Project.
func (p *Project) UsesCentralPackageManagement() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.centralInTree || p.boolProperty("ManagePackageVersionsCentrally")
}

// PackageReferences returns PackageReference items plus packages.config
// entries.
func (p *Project) PackageReferences() []deps.PackageReference {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.packageReferences()
}

func (p *Project) packageReferences() []deps.PackageReference {
	var out []deps.PackageReference
	for _, el := range p.items("PackageReference") {
		name, ok := el.attr("Include")
		if !ok || name == "" {
			continue
		}
		out = append(out, deps.PackageReference{Name: name, Version: itemVersion(el)})
	}
	if p.packages != nil {
		for _, el := range p.packages.root.elements("package") {
			id, _ := el.attr("id")
			version, _ := el.attr("version")
			if id != "" {
				out = append(out, deps.PackageReference{Name: id, Version: version})
			}
		}
	}
	return out
}

// itemVersion reads Version as an attribute or a child element.
func itemVersion(el *element) string {
	if v, ok := el.attr("Version"); ok {
		return v
	}
	if child := el.first("Version"); child != nil {
		return child.text()
	}
	return ""
}

// AddPackageReference implements deps.Mutable. An existing reference with
// the same name has its version replaced.
func (p *Project) AddPackageReference(ref deps.PackageReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNotLoaded
	}

	for _, el := range p.items("PackageReference") {
		name, _ := el.attr("Include")
		if !strings.EqualFold(name, ref.Name) {
			continue
		}
		if child := el.first("Version"); child != nil {
			child.setText(ref.Version)
		} else if ref.Version != "" {
			el.setAttr("Version", ref.Version)
		}
		return nil
	}

	el := newElement("PackageReference", attr("Include", ref.Name))
	if ref.Version != "" {
		el.setAttr("Version", ref.Version)
	}
	p.itemGroup("PackageReference").appendChild(el, p.indent)
	return nil
}

// RemovePackageReference implements deps.Mutable. It removes the first
// reference matching the name and, when ref has one, the version; a
// packages.config entry is removed when no item matches.
func (p *Project) RemovePackageReference(ref deps.PackageReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNotLoaded
	}

	for _, g := range p.doc.root.elements("ItemGroup") {
		for _, el := range g.elements("PackageReference") {
			name, _ := el.attr("Include")
			if !matchesPackage(name, itemVersion(el), ref) {
				continue
			}
			g.removeChild(el)
			if g.isEmpty() {
				p.doc.root.removeChild(g)
			}
			return nil
		}
	}
	if p.packages != nil {
		for _, el := range p.packages.root.elements("package") {
			id, _ := el.attr("id")
			version, _ := el.attr("version")
			if matchesPackage(id, version, ref) {
				p.packages.root.removeChild(el)
				p.packagesDirty = true
				return nil
			}
		}
	}
	return nil
}

func matchesPackage(name, version string, ref deps.PackageReference) bool {
	if !strings.EqualFold(name, ref.Name) {
		return false
	}
	return ref.Version == "" || strings.EqualFold(version, ref.Version)
}

// removeItems removes items whose identity matches name and drops item
// groups left empty.
func (p *Project) removeItems(kind, name string) {
	for _, g := range p.doc.root.elements("ItemGroup") {
		for _, el := range g.elements(kind) {
			include, _ := el.attr("Include")
			if strings.EqualFold(assemblyName(include), name) || strings.EqualFold(include, name) {
				g.removeChild(el)
			}
		}
		if g.isEmpty() {
			p.doc.root.removeChild(g)
		}
	}
}

// FrameworkReferences implements deps.Subject.
func (p *Project) FrameworkReferences() []deps.FrameworkReference {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []deps.FrameworkReference
	for _, el := range p.items("FrameworkReference") {
		if name, ok := el.attr("Include"); ok && name != "" {
			out = append(out, deps.FrameworkReference{Name: name})
		}
	}
	return out
}

// AddFrameworkReference implements deps.Mutable.
func (p *Project) AddFrameworkReference(ref deps.FrameworkReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNotLoaded
	}

	for _, el := range p.items("FrameworkReference") {
		if name, _ := el.attr("Include"); strings.EqualFold(name, ref.Name) {
			return nil
		}
	}
	el := newElement("FrameworkReference", attr("Include", ref.Name))
	p.itemGroup("FrameworkReference").appendChild(el, p.indent)
	return nil
}

// RemoveFrameworkReference implements deps.Mutable.
func (p *Project) RemoveFrameworkReference(ref deps.FrameworkReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNotLoaded
	}
	p.removeItems("FrameworkReference", ref.Name)
	return nil
}

// AssemblyReferences implements deps.Subject.
func (p *Project) AssemblyReferences() []deps.AssemblyReference {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.assemblyReferences()
}

func (p *Project) assemblyReferences() []deps.AssemblyReference {
	var out []deps.AssemblyReference
	for _, el := range p.items("Reference") {
		include, ok := el.attr("Include")
		if !ok || include == "" {
			continue
		}
		ref := deps.AssemblyReference{Name: assemblyName(include)}
		if hint := el.first("HintPath"); hint != nil {
			ref.HintPath = hint.text()
		}
		out = append(out, ref)
	}
	return out
}

// assemblyName strips the version and culture from a strong name.
func assemblyName(include string) string {
	name, _, _ := strings.Cut(include, ",")
	return strings.TrimSpace(name)
}

// RemoveAssemblyReference implements deps.Mutable.
func (p *Project) RemoveAssemblyReference(ref deps.AssemblyReference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNotLoaded
	}
	p.removeItems("Reference", ref.Name)
	return nil
}
