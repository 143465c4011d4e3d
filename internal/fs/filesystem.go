package fs

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/BuntinJP/xlog-images/internal/xli"
)

// PlaceholderName is the sentinel file dropped into pre-created upload
// directories so source control keeps them.
const PlaceholderName = ".gitkeep"

// OSFilesystemManager is the real filesystem implementation of
// FilesystemManager. Discovery excludes sentinel placeholder files and
// sniffs each file's content type from its leading bytes.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager. ignorePatterns name
// the sentinel files excluded from discovery; the placeholder file is always
// excluded.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	patterns := append([]string{PlaceholderName}, ignorePatterns...)
	return &OSFilesystemManager{ignore: NewIgnoreMatcher(patterns)}
}

// FindFiles discovers regular files under root, recursively, excluding
// sentinels. Each result carries a sniffed content type.
func (m *OSFilesystemManager) FindFiles(root string) ([]xli.LocalFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	var files []xli.LocalFile
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		if m.ignore.Match(rel) {
			return nil
		}
		contentType, err := sniffContentType(p)
		if err != nil {
			return fmt.Errorf("sniffing %s: %w", p, err)
		}
		files = append(files, xli.LocalFile{Path: p, ContentType: contentType})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// ReadFile reads a whole file.
func (m *OSFilesystemManager) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists reports whether a file exists at path.
func (m *OSFilesystemManager) Exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WriteFile writes data to path, creating parent directories as needed.
func (m *OSFilesystemManager) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// AppendFile appends data to the existing file at path.
func (m *OSFilesystemManager) AppendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EnsureDir creates the directory if needed and drops the placeholder file
// inside. Safe to call repeatedly.
func (m *OSFilesystemManager) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	placeholder := filepath.Join(path, PlaceholderName)
	if _, err := os.Stat(placeholder); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat placeholder: %w", err)
	}
	if err := os.WriteFile(placeholder, nil, 0644); err != nil {
		return fmt.Errorf("writing placeholder: %w", err)
	}
	return nil
}

// sniffContentType detects a file's MIME type from its first 512 bytes,
// which is all http.DetectContentType considers.
func sniffContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// Compile-time check that OSFilesystemManager implements xli.FilesystemManager interface
var _ xli.FilesystemManager = (*OSFilesystemManager)(nil)
