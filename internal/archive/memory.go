package archive

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BuntinJP/xlog-images/internal/xli"
)

// MemoryStore is an in-memory implementation of the ArchiveStore interface,
// useful for tests and the selftest command. Archives round-trip through
// JSON so memory and file behavior stay identical.
type MemoryStore struct {
	mu        sync.Mutex
	data      []byte            // serialized ledger, nil until Init/Save
	backups   map[string][]byte // label -> snapshot
	manifests map[string][]byte // label -> run manifest
}

// NewMemoryStore creates an empty in-memory store. Load fails until Init or
// Save has been called, mirroring a missing ledger file.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		backups:   make(map[string][]byte),
		manifests: make(map[string][]byte),
	}
}

// Load deserializes the stored ledger.
func (s *MemoryStore) Load() (*xli.Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, fmt.Errorf("archive not initialized")
	}
	var archive xli.Archive
	if err := json.Unmarshal(s.data, &archive); err != nil {
		return nil, fmt.Errorf("%w: %v", xli.ErrCorruptArchive, err)
	}
	if archive.Uploaded == nil {
		archive.Uploaded = []xli.AssetRecord{}
	}
	if archive.Destroyed == nil {
		archive.Destroyed = []xli.AssetRecord{}
	}
	return &archive, nil
}

// Save serializes and stores the full ledger.
func (s *MemoryStore) Save(archive *xli.Archive) error {
	data, err := json.Marshal(archive)
	if err != nil {
		return fmt.Errorf("serializing archive: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Init seeds an empty ledger.
func (s *MemoryStore) Init() error {
	s.mu.Lock()
	exists := s.data != nil
	s.mu.Unlock()
	if exists {
		return fmt.Errorf("archive already initialized")
	}
	return s.Save(xli.NewArchive())
}

// Backup stores an immutable labeled snapshot.
func (s *MemoryStore) Backup(archive *xli.Archive, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.backups[label]; ok {
		return "", fmt.Errorf("%w: %s", xli.ErrBackupCollision, label)
	}
	data, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("serializing backup: %w", err)
	}
	s.backups[label] = data
	return "memory://backups/" + label, nil
}

// WriteRunManifest stores the labeled run listing.
func (s *MemoryStore) WriteRunManifest(records []xli.AssetRecord, label string) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("serializing run manifest: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[label] = data
	return "memory://runs/" + label, nil
}

// BackupCount returns the number of snapshots taken. For tests.
func (s *MemoryStore) BackupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backups)
}

// Compile-time check that MemoryStore implements xli.ArchiveStore interface
var _ xli.ArchiveStore = (*MemoryStore)(nil)
