package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BuntinJP/xlog-images/internal/xli"
)

// MemoryGateway is an in-memory implementation of the Gateway interface.
// It keeps uploaded assets in a map, making it useful for tests and the
// selftest command. This implementation is safe for concurrent use.
type MemoryGateway struct {
	name    string
	baseURL string

	mu     sync.RWMutex
	assets map[string]memoryAsset // remote id -> asset
}

type memoryAsset struct {
	originalFilename string
	content          []byte
}

// NewMemoryGateway creates an empty in-memory gateway with the given name.
func NewMemoryGateway(name string) *MemoryGateway {
	return &MemoryGateway{
		name:    name,
		baseURL: "https://assets.invalid/" + name + "/",
		assets:  make(map[string]memoryAsset),
	}
}

// Upload stores the file's content under the requested id.
func (g *MemoryGateway) Upload(ctx context.Context, path string, requestedID string) (*xli.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	g.mu.Lock()
	g.assets[requestedID] = memoryAsset{
		originalFilename: filepath.Base(path),
		content:          content,
	}
	g.mu.Unlock()

	url := g.baseURL + requestedID
	metadata, _ := json.Marshal(map[string]any{
		"public_id":  requestedID,
		"secure_url": url,
		"bytes":      len(content),
	})
	return &xli.UploadResult{RemoteID: requestedID, SecureURL: url, Metadata: metadata}, nil
}

// Destroy removes an asset. Destroying an unknown id is an error so tests
// can observe double deletes.
func (g *MemoryGateway) Destroy(ctx context.Context, remoteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.assets[remoteID]; !ok {
		return fmt.Errorf("asset not found: %s", remoteID)
	}
	delete(g.assets, remoteID)
	return nil
}

// List returns up to max stored assets, ordered by id for determinism.
func (g *MemoryGateway) List(ctx context.Context, max int) ([]xli.RemoteAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.assets))
	for id := range g.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var assets []xli.RemoteAsset
	for _, id := range ids {
		if len(assets) >= max {
			break
		}
		a := g.assets[id]
		assets = append(assets, xli.RemoteAsset{
			RemoteID:         id,
			SecureURL:        g.baseURL + id,
			OriginalFilename: a.originalFilename,
		})
	}
	return assets, nil
}

// Has reports whether an asset is stored. For tests.
func (g *MemoryGateway) Has(remoteID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.assets[remoteID]
	return ok
}

// Count returns the number of stored assets. For tests.
func (g *MemoryGateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.assets)
}

// Compile-time check that MemoryGateway implements xli.Gateway interface
var _ xli.Gateway = (*MemoryGateway)(nil)
