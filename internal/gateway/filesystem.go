package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/BuntinJP/xlog-images/internal/xli"
)

// FileSystemGateway mirrors the remote asset store into a local directory.
// It exists for offline workflows and integration tests: asset ids map to
// file paths under the root, and "urls" are file:// URLs.
//
//	<root>/
//	  2024/1/2/cat        (asset content, named by id)
//	  2024/1/2/cat.meta   (original filename sidecar)
type FileSystemGateway struct {
	name string
	root string
}

type fileMeta struct {
	OriginalFilename string `json:"originalFilename"`
}

// NewFileSystemGateway creates a gateway rooted at the given directory.
func NewFileSystemGateway(name, root string) (*FileSystemGateway, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create gateway root: %w", err)
	}
	return &FileSystemGateway{name: name, root: root}, nil
}

// Upload copies the file's content to the id's path under the root.
func (g *FileSystemGateway) Upload(ctx context.Context, path string, requestedID string) (*xli.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest := filepath.Join(g.root, filepath.FromSlash(requestedID))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("creating asset directory: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	if err := writeFileAtomic(dest, src); err != nil {
		return nil, fmt.Errorf("storing asset: %w", err)
	}

	meta := fileMeta{OriginalFilename: filepath.Base(path)}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("serializing sidecar: %w", err)
	}
	if err := os.WriteFile(dest+".meta", metaData, 0644); err != nil {
		return nil, fmt.Errorf("writing sidecar: %w", err)
	}

	return &xli.UploadResult{
		RemoteID:  requestedID,
		SecureURL: g.urlFor(dest),
		Metadata:  metaData,
	}, nil
}

// Destroy removes the asset and its sidecar.
func (g *FileSystemGateway) Destroy(ctx context.Context, remoteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := filepath.Join(g.root, filepath.FromSlash(remoteID))
	if _, err := os.Stat(dest); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("asset not found: %s", remoteID)
		}
		return fmt.Errorf("stat asset: %w", err)
	}
	if err := os.Remove(dest); err != nil {
		return fmt.Errorf("removing asset: %w", err)
	}
	// Sidecar loss is tolerable; the asset itself is gone.
	os.Remove(dest + ".meta")
	return nil
}

// List walks the root and returns up to max assets, ordered by id.
func (g *FileSystemGateway) List(ctx context.Context, max int) ([]xli.RemoteAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	err := filepath.WalkDir(g.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || filepath.Ext(p) == ".meta" {
			return nil
		}
		rel, err := filepath.Rel(g.root, p)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking gateway root: %w", err)
	}
	sort.Strings(ids)

	var assets []xli.RemoteAsset
	for _, id := range ids {
		if len(assets) >= max {
			break
		}
		dest := filepath.Join(g.root, filepath.FromSlash(id))
		asset := xli.RemoteAsset{RemoteID: id, SecureURL: g.urlFor(dest)}
		if metaData, err := os.ReadFile(dest + ".meta"); err == nil {
			var meta fileMeta
			if json.Unmarshal(metaData, &meta) == nil {
				asset.OriginalFilename = meta.OriginalFilename
			}
			asset.Metadata = metaData
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// urlFor builds a file:// URL for an asset path.
func (g *FileSystemGateway) urlFor(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// writeFileAtomic writes r to path using a temp file in the same directory
// followed by a rename.
func writeFileAtomic(path string, r io.Reader) error {
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

	if _, err := io.Copy(tmpFile, r); err != nil {
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

// Compile-time check that FileSystemGateway implements xli.Gateway interface
var _ xli.Gateway = (*FileSystemGateway)(nil)
