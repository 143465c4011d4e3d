package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	t.Run("discovers nested files with sniffed types", func(t *testing.T) {
		root := t.TempDir()
		nested := filepath.Join(root, "2024", "1", "2")
		if err := os.MkdirAll(nested, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(nested, "cat.png"), pngHeader, 0644); err != nil {
			t.Fatalf("writing image: %v", err)
		}
		if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("plain text"), 0644); err != nil {
			t.Fatalf("writing text: %v", err)
		}

		m := NewOSFilesystemManager(nil)
		files, err := m.FindFiles(root)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("FindFiles() returned %d files, want 2", len(files))
		}

		types := map[string]string{}
		for _, f := range files {
			types[filepath.Base(f.Path)] = f.ContentType
		}
		if types["cat.png"] != "image/png" {
			t.Errorf("cat.png sniffed as %q", types["cat.png"])
		}
		if !strings.HasPrefix(types["notes.txt"], "text/plain") {
			t.Errorf("notes.txt sniffed as %q", types["notes.txt"])
		}
	})

	t.Run("excludes placeholders and ignore patterns", func(t *testing.T) {
		root := t.TempDir()
		for name, content := range map[string][]byte{
			PlaceholderName: nil,
			"draft.skip":    []byte("x"),
			"cat.png":       pngHeader,
		} {
			if err := os.WriteFile(filepath.Join(root, name), content, 0644); err != nil {
				t.Fatalf("writing %s: %v", name, err)
			}
		}

		m := NewOSFilesystemManager([]string{"*.skip"})
		files, err := m.FindFiles(root)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		if len(files) != 1 || filepath.Base(files[0].Path) != "cat.png" {
			t.Errorf("FindFiles() = %+v, want only cat.png", files)
		}
	})
}

func TestOSFilesystemManager_EnsureDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "2024", "5", "6")
	m := NewOSFilesystemManager(nil)

	if err := m.EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	placeholder := filepath.Join(dir, PlaceholderName)
	if _, err := os.Stat(placeholder); err != nil {
		t.Fatalf("placeholder not created: %v", err)
	}

	// Second call leaves everything in place.
	if err := m.EnsureDir(dir); err != nil {
		t.Fatalf("second EnsureDir() error = %v", err)
	}
	if _, err := os.Stat(placeholder); err != nil {
		t.Errorf("placeholder missing after rerun: %v", err)
	}
}

func TestIgnoreMatcher(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"basename pattern matches anywhere", []string{".gitkeep"}, "2024/1/2/.gitkeep", true},
		{"glob on basename", []string{"*.tmp"}, "2024/scratch.tmp", true},
		{"path pattern matches relative path", []string{"2024/*/draft.png"}, "2024/1/draft.png", true},
		{"path pattern needs full match", []string{"2024/draft.png"}, "2023/draft.png", false},
		{"no patterns", nil, "anything", false},
		{"comments and blanks are skipped", []string{"", "# note"}, "# note", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
