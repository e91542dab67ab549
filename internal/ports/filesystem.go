package ports

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo contains file metadata.
type FileInfo struct {
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

// FileSystem provides the file operations uplift needs on project trees.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	IsDir(path string) bool
	Remove(path string) error
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldPath, newPath string) error
	CopyFile(src, dest string) error
	FileHash(path string) (string, error)
	GetFileInfo(path string) (FileInfo, error)

	// ListFiles returns every regular file below root, sorted. Directories
	// named in skip are not descended into.
	ListFiles(root string, skip ...string) ([]string, error)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// IsPathWithinRoot reports whether path, after cleaning, is root or lies
// below it. The check is lexical.
func IsPathWithinRoot(root, path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
