package upgrade

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/uplift/internal/domain/project"
	"github.com/felixgeelhaar/uplift/internal/domain/step"
)

type backupStep struct {
	session *Session
	svc     Services
}

func (b *backupStep) IsApplicable(context.Context) (bool, error) {
	return b.session.Current != nil && !b.session.Options.SkipBackup, nil
}

func (b *backupStep) Initialize(context.Context) (step.Evaluation, error) {
	dir := b.session.Current.Project.Directory()
	if rec, ok := b.session.BackupOf(dir); ok {
		return step.Complete("Backed up to " + rec.Location), nil
	}
	return step.Incomplete("Back up "+dir, step.RiskNone), nil
}

func (b *backupStep) Apply(ctx context.Context) (step.Evaluation, error) {
	dir := b.session.Current.Project.Directory()
	rec, err := b.svc.Backup.Create(ctx, dir)
	if err != nil {
		return step.Evaluation{}, fmt.Errorf("backup of %s failed: %w", dir, err)
	}
	b.session.backups[project.Key(dir)] = rec
	if rec.Location == "" {
		return step.Complete("Backup disabled"), nil
	}
	return step.Complete(fmt.Sprintf("Backed up %d files to %s", rec.Files, rec.Location)), nil
}
