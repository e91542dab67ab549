package upgrade

import (
	"github.com/felixgeelhaar/uplift/internal/domain/step"
)

// Step IDs of the default tree.
var (
	EntryPointID = step.MustNewID("upgrade:entrypoint")
	ProjectID    = step.MustNewID("upgrade:project")
	BackupID     = step.MustNewID("upgrade:backup")
	ConvertID    = step.MustNewID("upgrade:convert")
	TargetID     = step.MustNewID("upgrade:target")
	PackagesID   = step.MustNewID("upgrade:packages")
	SourceID     = step.MustNewID("upgrade:source")
	FinalizeID   = step.MustNewID("upgrade:finalize")
)

// Steps builds a fresh step tree for the next project of the session.
func Steps(s *Session, svc Services) ([]*step.Step, error) {
	source, err := newSourceStep(s, svc)
	if err != nil {
		return nil, err
	}

	return []*step.Step{
		step.New(EntryPointID, "Choose entry points", &entryPointStep{session: s, svc: svc},
			step.WithDescription("Select the projects the upgrade starts from.")),
		step.New(ProjectID, "Select next project", &projectStep{session: s, svc: svc},
			step.WithDescription("Pick the next project in dependency order and check that it can be upgraded."),
			step.WithDependsOn(EntryPointID),
			step.WithRequiresSuccess()),
		step.New(BackupID, "Back up project", &backupStep{session: s, svc: svc},
			step.WithDescription("Copy the project directory aside before anything is changed."),
			step.WithDependsOn(ProjectID),
			step.WithRequiresSuccess()),
		step.New(ConvertID, "Convert to SDK style", &convertStep{session: s, svc: svc},
			step.WithDescription("Rewrite the project file in SDK style with the external converter."),
			step.WithDependsOn(BackupID),
			step.WithRequiresSuccess()),
		step.New(TargetID, "Update target framework", &targetStep{session: s},
			step.WithDescription("Point the project at the upgrade target."),
			step.WithDependsOn(ConvertID),
			step.WithRequiresSuccess()),
		step.New(PackagesID, "Update package references", &packagesStep{session: s, svc: svc},
			step.WithDescription("Remove, replace and upgrade package references until nothing changes."),
			step.WithDependsOn(TargetID),
			step.WithRequiresSuccess()),
		source,
		step.New(FinalizeID, "Finish project", &finalizeStep{session: s, svc: svc},
			step.WithDescription("Record the project as upgraded."),
			step.WithDependsOn(PackagesID, SourceID),
			step.WithRequiresSuccess()),
	}, nil
}
