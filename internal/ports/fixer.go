package ports

import "context"

// Diagnostic is a source-level issue a FixProvider can address.
type Diagnostic struct {
	ID      string
	Title   string
	Risk    string
	Files   []string
	Count   int
	Fixable bool
}

// FixResult summarizes what Fix changed.
type FixResult struct {
	FilesChanged int
	Replacements int
}

// FixProvider finds and fixes source incompatibilities in a project directory.
type FixProvider interface {
	// Diagnose reports one Diagnostic per issue ID found below dir.
	Diagnose(ctx context.Context, dir string) ([]Diagnostic, error)

	// Fix applies the fix for d below dir.
	Fix(ctx context.Context, dir string, d Diagnostic) (FixResult, error)

	// Rules describes every diagnostic the provider can report, without
	// files or counts.
	Rules() []Diagnostic
}
