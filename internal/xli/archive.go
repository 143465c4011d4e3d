package xli

import (
	"encoding/json"
	"fmt"
)

// AssetRecord is one entry in the archive ledger. The JSON field names are
// part of the on-disk format and must stay readable by prior revisions of
// this tool.
//
// A record is created when an upload succeeds or when an existing remote
// asset is discovered. It is never edited in place afterwards; only its
// partition membership changes.
type AssetRecord struct {
	Identity         string          `json:"publicId"`
	RemoteURL        string          `json:"url"`
	OriginalFilename string          `json:"originalFilename"`
	// RemoteMetadata carries the raw gateway response. It is opaque to this
	// tool and round-trips through save/load untouched.
	RemoteMetadata json.RawMessage `json:"result,omitempty"`
}

// Archive is the in-memory form of the ledger: every asset ever uploaded,
// split into the live partition and the destroyed partition. An identity is
// live in at most one partition at a time.
type Archive struct {
	Uploaded  []AssetRecord `json:"uploaded"`
	Destroyed []AssetRecord `json:"destroyed"`
}

// NewArchive returns an empty archive with both partitions allocated, so a
// freshly initialized ledger serializes with explicit empty arrays.
func NewArchive() *Archive {
	return &Archive{Uploaded: []AssetRecord{}, Destroyed: []AssetRecord{}}
}

// FindByIdentity returns the live record for an identity, or nil if the
// identity is not in the uploaded partition. Destroyed records are not
// searched; callers that need them use FindDestroyed.
func (a *Archive) FindByIdentity(identity string) *AssetRecord {
	for i := range a.Uploaded {
		if a.Uploaded[i].Identity == identity {
			return &a.Uploaded[i]
		}
	}
	return nil
}

// FindDestroyed returns the destroyed record for an identity, or nil.
func (a *Archive) FindDestroyed(identity string) *AssetRecord {
	for i := range a.Destroyed {
		if a.Destroyed[i].Identity == identity {
			return &a.Destroyed[i]
		}
	}
	return nil
}

// Append adds a record to the uploaded partition. The ledger must never hold
// two live records for one identity, so appending an identity that is
// already live fails with ErrDuplicateIdentity.
func (a *Archive) Append(record AssetRecord) error {
	if a.FindByIdentity(record.Identity) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, record.Identity)
	}
	a.Uploaded = append(a.Uploaded, record)
	return nil
}

// MoveToDestroyed moves an identity's record from uploaded to destroyed.
// Fails with ErrNotFound if the identity is not live.
func (a *Archive) MoveToDestroyed(identity string) error {
	for i := range a.Uploaded {
		if a.Uploaded[i].Identity == identity {
			record := a.Uploaded[i]
			a.Uploaded = append(a.Uploaded[:i], a.Uploaded[i+1:]...)
			a.Destroyed = append(a.Destroyed, record)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, identity)
}

// PruneDestroyed forgets destroyed records whose removal has fully taken
// effect: those with no live record for the same identity. A destroyed
// identity that was later re-uploaded keeps its destroyed record so the
// history of the earlier deletion is preserved. Returns the number of
// records pruned.
func (a *Archive) PruneDestroyed() int {
	kept := a.Destroyed[:0]
	pruned := 0
	for _, record := range a.Destroyed {
		if a.FindByIdentity(record.Identity) != nil {
			kept = append(kept, record)
		} else {
			pruned++
		}
	}
	a.Destroyed = kept
	return pruned
}
