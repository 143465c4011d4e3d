package xli

// ArchiveStore persists the archive ledger. The store exclusively owns the
// on-disk file; every mutating operation loads the full archive, mutates it
// in memory, and writes it back in full.
type ArchiveStore interface {
	// Load reads the full archive. A missing or unparseable file is an
	// error (wrapping ErrCorruptArchive when malformed) — the tool must
	// abort rather than silently start from an empty ledger.
	Load() (*Archive, error)

	// Save writes the full archive, atomically from the caller's
	// perspective (temp file + rename or equivalent).
	Save(archive *Archive) error

	// Init creates an empty archive file. Fails if one already exists.
	Init() error

	// Backup writes an immutable snapshot of the archive under the given
	// label and returns its location. An existing snapshot with the same
	// label fails with ErrBackupCollision; callers namespace labels by
	// calendar date.
	Backup(archive *Archive, label string) (string, error)

	// WriteRunManifest records just the records touched by one upload run,
	// independent of the main ledger, under the given label.
	WriteRunManifest(records []AssetRecord, label string) (string, error)
}
