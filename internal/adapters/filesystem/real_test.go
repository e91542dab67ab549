package filesystem

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNewRealFileSystem(t *testing.T) {
	fs := NewRealFileSystem()
	if fs == nil {
		t.Error("NewRealFileSystem() should not return nil")
	}
}

func TestRealFileSystem_Integration(t *testing.T) {
	fs := NewRealFileSystem()
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "App.csproj")
	if err := fs.WriteFile(testFile, []byte("<Project />"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	content, err := fs.ReadFile(testFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(content) != "<Project />" {
		t.Errorf("ReadFile() = %q, want %q", string(content), "<Project />")
	}

	if !fs.Exists(testFile) {
		t.Error("Exists() should return true")
	}

	hash, err := fs.FileHash(testFile)
	if err != nil {
		t.Fatalf("FileHash() error = %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("FileHash() = %q, want 64 hex characters", hash)
	}

	if !fs.IsDir(tmpDir) {
		t.Error("IsDir() should return true for directory")
	}
	if fs.IsDir(testFile) {
		t.Error("IsDir() should return false for file")
	}

	nestedDir := filepath.Join(tmpDir, "nested", "dir")
	if err := fs.MkdirAll(nestedDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if !fs.Exists(nestedDir) {
		t.Error("MkdirAll() should create nested directories")
	}

	newPath := filepath.Join(tmpDir, "App.csproj.old")
	if err := fs.Rename(testFile, newPath); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if fs.Exists(testFile) {
		t.Error("Rename() should remove original file")
	}
	if !fs.Exists(newPath) {
		t.Error("Rename() should create new file")
	}

	if err := fs.Remove(newPath); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if fs.Exists(newPath) {
		t.Error("Remove() should delete the file")
	}
}

func TestRealFileSystem_ReadFile_NotFound(t *testing.T) {
	fs := NewRealFileSystem()

	_, err := fs.ReadFile("/nonexistent/path/file.txt")
	if err == nil {
		t.Error("ReadFile() should return error for non-existent file")
	}
}

func TestRealFileSystem_FileHash_NotFound(t *testing.T) {
	fs := NewRealFileSystem()

	_, err := fs.FileHash("/nonexistent/path/file.txt")
	if err == nil {
		t.Error("FileHash() should return error for non-existent file")
	}
}

func TestRealFileSystem_CopyFile(t *testing.T) {
	fs := NewRealFileSystem()
	tmpDir := t.TempDir()

	srcFile := filepath.Join(tmpDir, "Program.cs")
	content := []byte("class Program {}")
	if err := fs.WriteFile(srcFile, content, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	dstFile := filepath.Join(tmpDir, "Program.cs.bak")
	if err := fs.CopyFile(srcFile, dstFile); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}

	dstContent, err := fs.ReadFile(dstFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(dstContent, content) {
		t.Errorf("CopyFile() content mismatch: got %q, want %q", string(dstContent), string(content))
	}

	info, err := fs.GetFileInfo(dstFile)
	if err != nil {
		t.Fatalf("GetFileInfo() error = %v", err)
	}
	if info.Mode.Perm() != 0o600 {
		t.Errorf("CopyFile() mode = %v, want 0600", info.Mode.Perm())
	}
	if !fs.Exists(srcFile) {
		t.Error("CopyFile() should not delete source file")
	}
}

func TestRealFileSystem_CopyFile_NotFound(t *testing.T) {
	fs := NewRealFileSystem()

	err := fs.CopyFile("/nonexistent/source.txt", filepath.Join(t.TempDir(), "dest.txt"))
	if err == nil {
		t.Error("CopyFile() should return error for non-existent source")
	}
}

func TestRealFileSystem_GetFileInfo(t *testing.T) {
	fs := NewRealFileSystem()
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("test content")
	if err := fs.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	info, err := fs.GetFileInfo(testFile)
	if err != nil {
		t.Fatalf("GetFileInfo() error = %v", err)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("GetFileInfo() Size = %d, want %d", info.Size, len(content))
	}
	if info.ModTime.IsZero() {
		t.Error("GetFileInfo() ModTime should not be zero")
	}
	if info.IsDir {
		t.Error("GetFileInfo() IsDir should be false for file")
	}

	dirInfo, err := fs.GetFileInfo(tmpDir)
	if err != nil {
		t.Fatalf("GetFileInfo() error = %v", err)
	}
	if !dirInfo.IsDir {
		t.Error("GetFileInfo() IsDir should be true for directory")
	}
}

func TestRealFileSystem_GetFileInfo_NotFound(t *testing.T) {
	fs := NewRealFileSystem()

	_, err := fs.GetFileInfo("/nonexistent/path/file.txt")
	if err == nil {
		t.Error("GetFileInfo() should return error for non-existent file")
	}
}

func TestRealFileSystem_ListFiles(t *testing.T) {
	fs := NewRealFileSystem()
	root := t.TempDir()

	for _, rel := range []string{
		"App.csproj",
		"Program.cs",
		"Controllers/HomeController.cs",
		"obj/project.assets.json",
		"bin/Debug/App.dll",
	} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := fs.ListFiles(root, "bin", "obj")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}

	want := []string{
		filepath.Join(root, "App.csproj"),
		filepath.Join(root, "Controllers", "HomeController.cs"),
		filepath.Join(root, "Program.cs"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("ListFiles() = %v, want %v", files, want)
	}
}

func TestRealFileSystem_ListFiles_MissingRoot(t *testing.T) {
	fs := NewRealFileSystem()

	if _, err := fs.ListFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ListFiles() should fail for a missing root")
	}
}
