package mocks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/uplift/internal/ports"
)

// FileSystem is a thread-safe test double for ports.FileSystem.
type FileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewFileSystem creates a new FileSystem mock.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// AddFile adds a file to the mock filesystem.
func (fs *FileSystem) AddFile(path string, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = []byte(content)
}

// SetFileContent sets file content directly as bytes.
func (fs *FileSystem) SetFileContent(path string, content []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = content
}

// AddDir adds a directory to the mock filesystem.
func (fs *FileSystem) AddDir(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
}

// ReadFile reads a file from the mock filesystem.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if content, ok := fs.files[path]; ok {
		return content, nil
	}
	return nil, fmt.Errorf("file not found: %s", path)
}

// WriteFile writes a file to the mock filesystem.
func (fs *FileSystem) WriteFile(path string, data []byte, _ os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = data
	return nil
}

// Exists checks if a file exists in the mock filesystem.
func (fs *FileSystem) Exists(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, fileExists := fs.files[path]
	return fileExists || fs.dirs[path]
}

// Remove removes a file from the mock filesystem.
func (fs *FileSystem) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.files, path)
	delete(fs.dirs, path)
	return nil
}

// MkdirAll creates a directory in the mock filesystem.
func (fs *FileSystem) MkdirAll(path string, _ os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
	return nil
}

// Rename renames a file in the mock filesystem.
func (fs *FileSystem) Rename(oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if content, ok := fs.files[oldPath]; ok {
		fs.files[newPath] = content
		delete(fs.files, oldPath)
		return nil
	}
	return fmt.Errorf("file not found: %s", oldPath)
}

// FileHash returns a hash of a file in the mock filesystem.
func (fs *FileSystem) FileHash(path string) (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	content, ok := fs.files[path]
	if !ok {
		return "", fmt.Errorf("file not found: %s", path)
	}
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:]), nil
}

// IsDir checks if a path is a directory in the mock filesystem.
func (fs *FileSystem) IsDir(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.dirs[path]
}

// CopyFile copies a file in the mock filesystem.
func (fs *FileSystem) CopyFile(src, dest string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	content, ok := fs.files[src]
	if !ok {
		return fmt.Errorf("file not found: %s", src)
	}
	fs.files[dest] = append([]byte(nil), content...)
	return nil
}

// GetFileInfo returns metadata about a file in the mock filesystem.
func (fs *FileSystem) GetFileInfo(path string) (ports.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if content, ok := fs.files[path]; ok {
		return ports.FileInfo{
			Size:    int64(len(content)),
			Mode:    0o644,
			ModTime: time.Now(),
			IsDir:   false,
		}, nil
	}

	if fs.dirs[path] {
		return ports.FileInfo{
			Size:    0,
			Mode:    0o755,
			ModTime: time.Now(),
			IsDir:   true,
		}, nil
	}

	return ports.FileInfo{}, fmt.Errorf("file not found: %s", path)
}

// ListFiles returns the files below root, sorted. Files inside a
// directory named in skip are left out.
func (fs *FileSystem) ListFiles(root string, skip ...string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	root = filepath.Clean(root)
	if _, isFile := fs.files[root]; !fs.dirs[root] && !isFile && !fs.hasFilesBelow(root) {
		return nil, fmt.Errorf("directory not found: %s", root)
	}

	var files []string
	for path := range fs.files {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
		if slices.ContainsFunc(dirs, func(d string) bool { return slices.Contains(skip, d) }) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func (fs *FileSystem) hasFilesBelow(root string) bool {
	prefix := root + string(filepath.Separator)
	for path := range fs.files {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Reset clears all files and directories.
func (fs *FileSystem) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files = make(map[string][]byte)
	fs.dirs = make(map[string]bool)
}

// Ensure FileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FileSystem)(nil)
