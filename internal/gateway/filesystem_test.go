package gateway

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("upload stores content and sidecar", func(t *testing.T) {
		root := t.TempDir()
		g, err := NewFileSystemGateway("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemGateway() error = %v", err)
		}

		result, err := g.Upload(ctx, writeAsset(t, "cat.png"), "2024/1/2/cat")
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if !strings.HasPrefix(result.SecureURL, "file://") {
			t.Errorf("SecureURL = %q, want file:// URL", result.SecureURL)
		}

		stored := filepath.Join(root, "2024", "1", "2", "cat")
		if _, err := os.Stat(stored); err != nil {
			t.Errorf("asset not on disk: %v", err)
		}
		if _, err := os.Stat(stored + ".meta"); err != nil {
			t.Errorf("sidecar not on disk: %v", err)
		}
	})

	t.Run("list excludes sidecars and carries the original filename", func(t *testing.T) {
		g, err := NewFileSystemGateway("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemGateway() error = %v", err)
		}
		if _, err := g.Upload(ctx, writeAsset(t, "cat.png"), "2024/1/2/cat"); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}

		assets, err := g.List(ctx, 10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(assets) != 1 {
			t.Fatalf("List() returned %d assets, want 1", len(assets))
		}
		if assets[0].RemoteID != "2024/1/2/cat" || assets[0].OriginalFilename != "cat.png" {
			t.Errorf("List() = %+v", assets[0])
		}
	})

	t.Run("destroy removes asset and sidecar", func(t *testing.T) {
		root := t.TempDir()
		g, err := NewFileSystemGateway("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemGateway() error = %v", err)
		}
		if _, err := g.Upload(ctx, writeAsset(t, "cat.png"), "2024/1/2/cat"); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}

		if err := g.Destroy(ctx, "2024/1/2/cat"); err != nil {
			t.Fatalf("Destroy() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "2024", "1", "2", "cat")); !os.IsNotExist(err) {
			t.Error("asset still on disk after Destroy()")
		}
		if err := g.Destroy(ctx, "2024/1/2/cat"); err == nil {
			t.Error("second Destroy() expected error")
		}
	})
}
