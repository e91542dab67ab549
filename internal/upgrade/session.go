// Package upgrade provides the concrete steps that migrate one project at a
// time: choose entry points, select the next project, back it up, convert
// it to SDK style, retarget it, converge its packages, fix its source and
// record it as done.
package upgrade

import (
	"github.com/felixgeelhaar/uplift/internal/domain/config"
	"github.com/felixgeelhaar/uplift/internal/domain/deps"
	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/readiness"
	"github.com/felixgeelhaar/uplift/internal/domain/tfm"
	"github.com/felixgeelhaar/uplift/internal/ports"
)

// Services are the collaborators the steps use.
type Services struct {
	Workspace project.Workspace
	Gate      *readiness.Gate
	Pipeline  *deps.Pipeline
	Fixers    ports.FixProvider
	Backup    ports.Backup
	Toolchain ports.ToolchainRegistrar
	Runner    ports.CommandRunner
	Chooser   ports.Chooser
	Log       ports.Logger
}

func (s Services) logger() ports.Logger {
	if s.Log == nil {
		return ports.Discard
	}
	return s.Log
}

// Session is the state shared by the step trees of one run. Every project
// gets a fresh tree; the session carries what they have in common.
type Session struct {
	ID        string
	InputPath string
	Options   config.Options
	Target    tfm.Framework
	Selector  project.TargetSelector
	Resolver  *project.Resolver

	// EntryPoints are the projects traversal starts from.
	EntryPoints []project.Model

	// Current is the project being upgraded, nil between projects.
	Current *project.Candidate

	// Readiness is the gate report of the last selection attempt.
	Readiness *readiness.Report

	// AllDone is set once no reachable project needs upgrading.
	AllDone bool

	// Upgraded lists the project files finished in this run, in order.
	Upgraded []string

	backups map[string]ports.BackupRecord
	scans   map[string]*sourceScan
}

// NewSession creates a session for the solution or project at inputPath.
func NewSession(id, inputPath string, opts config.Options, target tfm.Framework, workspace project.Workspace) *Session {
	selector := project.TargetSelector{Default: target, KeepNetStandard: opts.KeepNetStandard}
	return &Session{
		ID:        id,
		InputPath: inputPath,
		Options:   opts,
		Target:    target,
		Selector:  selector,
		Resolver:  project.NewResolver(workspace, selector),
		backups:   make(map[string]ports.BackupRecord),
		scans:     make(map[string]*sourceScan),
	}
}

// BackupOf returns the backup taken of dir during this run.
func (s *Session) BackupOf(dir string) (ports.BackupRecord, bool) {
	rec, ok := s.backups[project.Key(dir)]
	return rec, ok
}

// finish records the current project as upgraded and clears it.
func (s *Session) finish() string {
	if s.Current == nil {
		return ""
	}
	path := s.Current.Project.FilePath()
	s.Upgraded = append(s.Upgraded, path)
	s.Resolver.Exclude(path)
	delete(s.scans, project.Key(s.Current.Project.Directory()))
	s.Current = nil
	return path
}
