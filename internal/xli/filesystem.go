package xli

import "io"

// LocalFile is a regular file discovered under the upload root.
type LocalFile struct {
	// Path is the absolute path on disk.
	Path string
	// ContentType is the sniffed MIME type (e.g. "image/png").
	ContentType string
}

// IsImage reports whether the file's primary content type is image.
func (f LocalFile) IsImage() bool {
	return len(f.ContentType) > 6 && f.ContentType[:6] == "image/"
}

// FilesystemManager abstracts filesystem access so the service layer can be
// tested without touching the real filesystem.
type FilesystemManager interface {
	// FindFiles discovers regular files under root, recursively and
	// depth-unbounded, excluding sentinel placeholder files. Each result
	// carries a sniffed content type.
	FindFiles(root string) ([]LocalFile, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// ReadFile reads a whole file. A missing file fails with an error
	// matching io/fs.ErrNotExist.
	ReadFile(path string) ([]byte, error)

	// Exists reports whether a file exists at path.
	Exists(path string) (bool, error)

	// WriteFile writes data to path, creating parent directories as
	// needed. An existing file is replaced.
	WriteFile(path string, data []byte) error

	// AppendFile appends data to the existing file at path.
	AppendFile(path string, data []byte) error

	// EnsureDir creates a directory (and parents) if it does not exist,
	// then drops a placeholder file inside so source control keeps the
	// otherwise-empty directory. Idempotent.
	EnsureDir(path string) error
}
