package fsops

import (
	"os"
	"testing"

	"github.com/spf13/afero"
)

func TestCreateTempDir(t *testing.T) {
	fs := afero.NewMemMapFs()

	dir, err := CreateTempDir(fs, "pkgtx-test-")
	if err != nil {
		t.Fatalf("CreateTempDir() error = %v", err)
	}

	if dir == "" {
		t.Error("expected non-empty directory path")
	}

	if !Exists(fs, dir) {
		t.Error("expected directory to exist")
	}
}

func TestEnsureDir(t *testing.T) {
	fs := afero.NewMemMapFs()

	path := "/test/nested/dir"
	if err := EnsureDir(fs, path, 0755); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	if !IsDir(fs, path) {
		t.Error("expected directory to exist and be a directory")
	}
}

func TestEnsureParentDir(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := EnsureParentDir(fs, "/var/lib/pkgtx/history.db"); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}

	if !IsDir(fs, "/var/lib/pkgtx") {
		t.Error("expected parent directory to exist")
	}
	if Exists(fs, "/var/lib/pkgtx/history.db") {
		t.Error("file itself should not be created")
	}
}

func TestExists(t *testing.T) {
	fs := afero.NewMemMapFs()

	afero.WriteFile(fs, "/test.txt", []byte("test"), 0644)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"existing file", "/test.txt", true},
		{"non-existing file", "/nonexistent.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Exists(fs, tt.path)
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()

	afero.WriteFile(fs, "/out/report.json", []byte("old"), 0644)

	if err := WriteFileAtomic(fs, "/out/report.json", []byte("[]"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	content, err := afero.ReadFile(fs, "/out/report.json")
	if err != nil {
		t.Fatalf("failed to read result: %v", err)
	}
	if string(content) != "[]" {
		t.Errorf("content = %q, want %q", content, "[]")
	}

	entries, err := afero.ReadDir(fs, "/out")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected temp file to be renamed away, got %d entries", len(entries))
	}

	info, _ := fs.Stat("/out/report.json")
	if info.Mode().Perm() != os.FileMode(0600) {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
}

func TestWriteFileAtomic_CreatesParent(t *testing.T) {
	fs := afero.NewMemMapFs()

	if err := WriteFileAtomic(fs, "/new/dir/out.json", []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if !Exists(fs, "/new/dir/out.json") {
		t.Error("expected file to exist")
	}
}
