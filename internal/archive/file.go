package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BuntinJP/xlog-images/internal/xli"
)

// FileStore persists the archive ledger as a single JSON file and owns the
// directory layout around it:
//
//	<archivePath>              (the ledger, {"uploaded": [...], "destroyed": [...]})
//	<backupRoot>/
//	  archive-<label>.json     (immutable dated snapshots)
//	<archiveRoot>/runs/
//	  uploads-<label>.json     (records touched by one upload run)
type FileStore struct {
	archivePath string
	backupRoot  string
	runsDir     string
}

// NewFileStore creates a file-backed archive store. Directories are created
// lazily on first write.
func NewFileStore(archivePath, backupRoot, archiveRoot string) *FileStore {
	return &FileStore{
		archivePath: archivePath,
		backupRoot:  backupRoot,
		runsDir:     filepath.Join(archiveRoot, "runs"),
	}
}

// Load reads the full ledger. A missing file is an error: the ledger is the
// only record of what was uploaded, so the tool must never invent an empty
// one on its own.
func (s *FileStore) Load() (*xli.Archive, error) {
	data, err := os.ReadFile(s.archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive not found at %s (run \"xli config init\" first): %w", s.archivePath, err)
		}
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	var archive xli.Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", xli.ErrCorruptArchive, s.archivePath, err)
	}

	// Older revisions of the ledger predate the destroyed partition.
	if archive.Uploaded == nil {
		archive.Uploaded = []xli.AssetRecord{}
	}
	if archive.Destroyed == nil {
		archive.Destroyed = []xli.AssetRecord{}
	}
	return &archive, nil
}

// Save writes the full ledger via temp file + rename so a crash never leaves
// a truncated archive behind. The ledger is serialized compactly: indenting
// would rewrite the opaque RemoteMetadata payloads, which must round-trip
// byte-untouched.
func (s *FileStore) Save(archive *xli.Archive) error {
	data, err := json.Marshal(archive)
	if err != nil {
		return fmt.Errorf("serializing archive: %w", err)
	}
	if err := writeFileAtomic(s.archivePath, data); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

// Init seeds an empty ledger. Refuses to touch an existing one.
func (s *FileStore) Init() error {
	if _, err := os.Stat(s.archivePath); err == nil {
		return fmt.Errorf("archive already exists at %s", s.archivePath)
	}
	if err := os.MkdirAll(filepath.Dir(s.archivePath), 0755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	return s.Save(xli.NewArchive())
}

// Backup writes an immutable snapshot named by label. A snapshot that
// already exists is never overwritten.
func (s *FileStore) Backup(archive *xli.Archive, label string) (string, error) {
	location := filepath.Join(s.backupRoot, "archive-"+label+".json")
	if _, err := os.Stat(location); err == nil {
		return "", fmt.Errorf("%w: %s", xli.ErrBackupCollision, location)
	}

	if err := os.MkdirAll(s.backupRoot, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	data, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("serializing backup: %w", err)
	}
	if err := writeFileAtomic(location, data); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return location, nil
}

// WriteRunManifest records the records touched by one upload run. Manifests
// are per-run artifacts; a later run on the same day replaces the listing.
func (s *FileStore) WriteRunManifest(records []xli.AssetRecord, label string) (string, error) {
	if err := os.MkdirAll(s.runsDir, 0755); err != nil {
		return "", fmt.Errorf("creating runs directory: %w", err)
	}

	location := filepath.Join(s.runsDir, "uploads-"+label+".json")
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("serializing run manifest: %w", err)
	}
	if err := writeFileAtomic(location, data); err != nil {
		return "", fmt.Errorf("writing run manifest: %w", err)
	}
	return location, nil
}

// writeFileAtomic writes data to path using a temp file in the same
// directory followed by a rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileStore implements xli.ArchiveStore interface
var _ xli.ArchiveStore = (*FileStore)(nil)
