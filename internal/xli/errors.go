package xli

import (
	"errors"
	"fmt"
)

// Sentinel errors for the archive and identity layer. Callers match with
// errors.Is to decide whether a failure aborts the invocation or just the
// current item.
var (
	// ErrInvalidPath means a file path is not under the configured upload root.
	ErrInvalidPath = errors.New("path is not under the upload root")

	// ErrMalformedIdentity means an identity does not have the expected
	// YYYY/M/D/name shape.
	ErrMalformedIdentity = errors.New("identity is not of the form YYYY/M/D/name")

	// ErrCorruptArchive means the persisted archive could not be parsed.
	// The tool must abort rather than rebuild from scratch and lose history.
	ErrCorruptArchive = errors.New("archive file is corrupt")

	// ErrDuplicateIdentity means an identity is already live in the uploaded
	// partition.
	ErrDuplicateIdentity = errors.New("identity already present in archive")

	// ErrNotFound means an identity is absent from the uploaded partition.
	ErrNotFound = errors.New("identity not found in archive")

	// ErrBackupCollision means a backup with the same label already exists.
	ErrBackupCollision = errors.New("backup with this label already exists")

	// ErrTemplateMissing means the documentation template file does not exist.
	ErrTemplateMissing = errors.New("documentation template not found")
)

// GatewayError wraps a failure reported by the remote asset gateway,
// preserving which operation and identity were involved.
type GatewayError struct {
	Op       string // "upload", "destroy" or "list"
	Identity string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s %s: %v", e.Op, e.Identity, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
