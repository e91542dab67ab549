// Package filesystem provides file system adapters.
package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/felixgeelhaar/uplift/internal/ports"
)

// RealFileSystem implements ports.FileSystem using actual file system operations.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// ReadFile reads a file and returns its contents.
func (rfs *RealFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file.
func (rfs *RealFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// Exists checks if a file or directory exists.
func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Remove removes a file or empty directory.
func (rfs *RealFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// MkdirAll creates a directory and all necessary parents.
func (rfs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Rename renames (moves) a file.
func (rfs *RealFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// FileHash returns a SHA256 hash of a file's contents.
func (rfs *RealFileSystem) FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// IsDir checks if a path is a directory.
func (rfs *RealFileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// CopyFile copies a file from src to dest, keeping its permissions.
func (rfs *RealFileSystem) CopyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dest, data, info.Mode())
}

// GetFileInfo returns metadata about a file.
func (rfs *RealFileSystem) GetFileInfo(path string) (ports.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ports.FileInfo{}, err
	}

	return ports.FileInfo{
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// ListFiles returns every regular file below root, sorted. Symlinks are
// not followed.
func (rfs *RealFileSystem) ListFiles(root string, skip ...string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && slices.Contains(skip, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Ensure RealFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*RealFileSystem)(nil)
