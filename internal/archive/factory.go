package archive

import (
	"fmt"

	"github.com/BuntinJP/xlog-images/internal/config"
	"github.com/BuntinJP/xlog-images/internal/xli"
)

// NewStoreFromConfig creates an ArchiveStore implementation based on the archive config type.
func NewStoreFromConfig(cfg *config.Config) (xli.ArchiveStore, error) {
	switch cfg.Archive.Type {
	case "", "file":
		if cfg.ArchivePath == "" {
			return nil, fmt.Errorf("file archive store requires archive_path to be set")
		}
		return NewFileStore(cfg.ArchivePath, cfg.BackupRoot, cfg.ArchiveRoot), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown archive store type: %s", cfg.Archive.Type)
	}
}
