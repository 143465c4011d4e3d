package xli

import "context"

// UploadResult is the gateway's response to a successful upload.
type UploadResult struct {
	RemoteID  string
	SecureURL string
	// Metadata is the raw provider response, stored opaquely in the archive.
	Metadata []byte
}

// RemoteAsset is one entry of a remote listing.
type RemoteAsset struct {
	RemoteID         string
	SecureURL        string
	OriginalFilename string
	Metadata         []byte
}

// MaxListResults caps remote listings; the hosting services this tool talks
// to refuse larger pages.
const MaxListResults = 500

// Gateway is the remote asset-hosting service. The tool only ever uploads,
// deletes by id, and lists — everything else (transport, auth, retries) is
// the implementation's concern.
type Gateway interface {
	// Upload stores the file at path under the requested remote id.
	Upload(ctx context.Context, path string, requestedID string) (*UploadResult, error)

	// Destroy removes the asset with the given remote id.
	Destroy(ctx context.Context, remoteID string) error

	// List returns up to max remote assets of the upload category.
	// max is capped at MaxListResults.
	List(ctx context.Context, max int) ([]RemoteAsset, error)
}
