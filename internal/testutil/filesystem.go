package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BuntinJP/xlog-images/internal/xli"
)

// mockFile is a file in the mock filesystem.
type mockFile struct {
	content     []byte
	contentType string
}

// MockFilesystemManager is an in-memory filesystem for testing the service
// layer without touching disk.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*mockFile
	dirs  map[string]bool
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*mockFile),
		dirs:  make(map[string]bool),
	}
}

// AddFile adds a file with an explicit content type.
func (m *MockFilesystemManager) AddFile(path string, content []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &mockFile{content: content, contentType: contentType}
}

// AddImage adds a file that sniffs as a PNG image.
func (m *MockFilesystemManager) AddImage(path string) {
	m.AddFile(path, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, "image/png")
}

// AddText adds a file with text content, sniffed as text/plain.
func (m *MockFilesystemManager) AddText(path string, content string) {
	m.AddFile(path, []byte(content), "text/plain; charset=utf-8")
}

func (m *MockFilesystemManager) FindFiles(root string) ([]xli.LocalFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root = filepath.Clean(root)
	var out []xli.LocalFile
	for path, f := range m.files {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			out = append(out, xli.LocalFile{Path: path, ContentType: f.contentType})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	content, err := m.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MockFilesystemManager) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, path)
	}
	return append([]byte(nil), f.content...), nil
}

func (m *MockFilesystemManager) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[filepath.Clean(path)]
	return ok, nil
}

func (m *MockFilesystemManager) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &mockFile{content: append([]byte(nil), data...)}
	return nil
}

func (m *MockFilesystemManager) AppendFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return fmt.Errorf("%w: %s", fs.ErrNotExist, path)
	}
	f.content = append(f.content, data...)
	return nil
}

func (m *MockFilesystemManager) EnsureDir(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[filepath.Clean(path)] = true
	return nil
}

// HasDir reports whether EnsureDir was called for path.
func (m *MockFilesystemManager) HasDir(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[filepath.Clean(path)]
}

// DirCount returns the number of directories ensured so far.
func (m *MockFilesystemManager) DirCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirs)
}

// Compile-time check that the mock satisfies the service's interface.
var _ xli.FilesystemManager = (*MockFilesystemManager)(nil)
