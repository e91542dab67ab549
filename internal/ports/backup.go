package ports

import "context"

// BackupRecord describes a finished backup.
type BackupRecord struct {
	ID       string
	Source   string
	Location string
	Files    int
}

// Backup copies a project directory aside before it is modified.
type Backup interface {
	// Create copies every file below dir into a new backup.
	Create(ctx context.Context, dir string) (BackupRecord, error)
}

// NoopBackup is a Backup that copies nothing.
// Use this when backups are disabled.
type NoopBackup struct{}

// Create returns a record with no location.
func (n *NoopBackup) Create(_ context.Context, dir string) (BackupRecord, error) {
	return BackupRecord{Source: dir}, nil
}

// Ensure NoopBackup implements Backup.
var _ Backup = (*NoopBackup)(nil)
