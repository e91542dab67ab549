// Package backup copies project directories aside before they are upgraded.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the manifest written into every backup.
const ManifestFile = "backup.yaml"

var (
	// ErrBackupNotFound is returned when a backup has no manifest.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrCorrupt is returned when a backed up file no longer matches its
	// recorded hash.
	ErrCorrupt = errors.New("backup is corrupt")
)

// SkipDirs are build outputs and tool state that are never backed up.
var SkipDirs = []string{"bin", "obj", ".vs", ".git", "node_modules"}

// Manifest records what a backup holds.
type Manifest struct {
	ID        string    `yaml:"id"`
	Source    string    `yaml:"source"`
	CreatedAt time.Time `yaml:"created_at"`
	Size      int64     `yaml:"size"`
	Files     []File    `yaml:"files"`
}

// File is one backed up file, relative to the source directory.
type File struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
}

// Store is a ports.Backup writing full copies next to the source directory,
// under <dir>.backup/<id>, or below a configured root.
type Store struct {
	fs    ports.FileSystem
	root  string
	log   ports.Logger
	now   func() time.Time
	newID func() string
}

var _ ports.Backup = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRoot stores backups under root/<base name of dir>/<id>.
func WithRoot(root string) Option {
	return func(s *Store) {
		s.root = root
	}
}

// WithLogger sets the logger.
func WithLogger(log ports.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock sets the time source used for manifests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store.
func NewStore(fs ports.FileSystem, opts ...Option) *Store {
	s := &Store{
		fs:    fs,
		log:   ports.Discard,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the directory that holds the backups of dir.
func (s *Store) Location(dir string) string {
	dir = filepath.Clean(dir)
	if s.root != "" {
		return filepath.Join(s.root, filepath.Base(dir))
	}
	return dir + ".backup"
}

// Create implements ports.Backup.
func (s *Store) Create(ctx context.Context, dir string) (ports.BackupRecord, error) {
	dir = filepath.Clean(dir)
	id := s.newID()
	location := filepath.Join(s.Location(dir), id)
	if ports.IsPathWithinRoot(dir, location) {
		return ports.BackupRecord{}, fmt.Errorf("backup location %s is inside %s", location, dir)
	}

	files, err := s.fs.ListFiles(dir, SkipDirs...)
	if err != nil {
		return ports.BackupRecord{}, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	manifest := Manifest{ID: id, Source: dir, CreatedAt: s.now().UTC()}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return ports.BackupRecord{}, err
		}
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			return ports.BackupRecord{}, err
		}
		dest := filepath.Join(location, rel)
		if err := s.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return ports.BackupRecord{}, fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
		}
		if err := s.fs.CopyFile(f, dest); err != nil {
			return ports.BackupRecord{}, fmt.Errorf("failed to copy %s: %w", f, err)
		}
		hash, err := s.fs.FileHash(dest)
		if err != nil {
			return ports.BackupRecord{}, err
		}
		if info, err := s.fs.GetFileInfo(dest); err == nil {
			manifest.Size += info.Size
		}
		manifest.Files = append(manifest.Files, File{Path: filepath.ToSlash(rel), SHA256: hash})
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return ports.BackupRecord{}, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := s.fs.MkdirAll(location, 0o755); err != nil {
		return ports.BackupRecord{}, err
	}
	// The manifest marks the backup as complete, so it appears in one step.
	manifestPath := filepath.Join(location, ManifestFile)
	tmp := manifestPath + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0o644); err != nil {
		return ports.BackupRecord{}, fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := s.fs.Rename(tmp, manifestPath); err != nil {
		_ = s.fs.Remove(tmp)
		return ports.BackupRecord{}, fmt.Errorf("failed to write manifest: %w", err)
	}

	s.log.Info(ctx, "backup created",
		ports.F("source", dir),
		ports.F("location", location),
		ports.F("files", len(manifest.Files)),
		ports.F("size", humanize.IBytes(uint64(manifest.Size))))

	return ports.BackupRecord{ID: id, Source: dir, Location: location, Files: len(manifest.Files)}, nil
}

// Manifest reads the manifest of the backup at location.
func (s *Store) Manifest(location string) (*Manifest, error) {
	path := filepath.Join(location, ManifestFile)
	if !s.fs.Exists(path) {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, location)
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &m, nil
}

// List returns the manifests of every backup of dir, oldest first.
func (s *Store) List(dir string) ([]Manifest, error) {
	base := s.Location(filepath.Clean(dir))
	files, err := s.fs.ListFiles(base)
	if err != nil {
		if !s.fs.Exists(base) {
			return nil, nil
		}
		return nil, err
	}
	var out []Manifest
	for _, f := range files {
		if filepath.Base(f) != ManifestFile || filepath.Dir(filepath.Dir(f)) != base {
			continue
		}
		m, err := s.Manifest(filepath.Dir(f))
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Restore copies the files of the backup at location back over its source.
// Every file is verified against the manifest before anything is written.
func (s *Store) Restore(ctx context.Context, location string) error {
	m, err := s.Manifest(location)
	if err != nil {
		return err
	}

	for _, f := range m.Files {
		hash, err := s.fs.FileHash(filepath.Join(location, filepath.FromSlash(f.Path)))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCorrupt, f.Path, err)
		}
		if hash != f.SHA256 {
			return fmt.Errorf("%w: %s changed since the backup was taken", ErrCorrupt, f.Path)
		}
	}

	for _, f := range m.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dest := filepath.Join(m.Source, filepath.FromSlash(f.Path))
		if err := s.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := s.fs.CopyFile(filepath.Join(location, filepath.FromSlash(f.Path)), dest); err != nil {
			return fmt.Errorf("failed to restore %s: %w", f.Path, err)
		}
	}
	s.log.Info(ctx, "backup restored", ports.F("location", location), ports.F("files", len(m.Files)))
	return nil
}
