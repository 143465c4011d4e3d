package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BuntinJP/xlog-images/internal/archive"
	"github.com/BuntinJP/xlog-images/internal/config"
	"github.com/BuntinJP/xlog-images/internal/database"
	"github.com/BuntinJP/xlog-images/internal/fs"
	"github.com/BuntinJP/xlog-images/internal/gateway"
	"github.com/BuntinJP/xlog-images/internal/xli"
)

// pngHeader is a minimal valid PNG signature, enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// SelfTest runs the full pipeline end to end against an in-memory gateway
// and a throwaway directory tree: skeleton from a fixture post, upload,
// docs, refresh, then delete. It exercises the same wiring the real
// commands use, minus the network.
func SelfTest(ctx context.Context, out *os.File) error {
	base, err := os.MkdirTemp("", "xli-selftest-*")
	if err != nil {
		return fmt.Errorf("creating selftest directory: %w", err)
	}
	defer os.RemoveAll(base)

	uploadRoot := filepath.Join(base, "upload")
	postsRoot := filepath.Join(base, "posts")
	docsRoot := filepath.Join(base, "docs")
	templatePath := filepath.Join(base, "doc.md")

	// Fixture: one dated post, one image for that date, the doc template.
	if err := os.MkdirAll(postsRoot, 0755); err != nil {
		return err
	}
	post := "---\ntitle: selftest\ndate: 2024-03-04\n---\nbody\n"
	if err := os.WriteFile(filepath.Join(postsRoot, "selftest.md"), []byte(post), 0644); err != nil {
		return err
	}
	template := "# assets\n\n" + xli.RecordPlaceholder + "\n"
	if err := os.WriteFile(templatePath, []byte(template), 0644); err != nil {
		return err
	}

	store := archive.NewMemoryStore()
	if err := store.Init(); err != nil {
		return fmt.Errorf("initializing archive: %w", err)
	}
	gw := gateway.NewMemoryGateway("selftest")
	fsmgr := fs.NewOSFilesystemManager(nil)
	db, err := database.NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	svc := xli.NewService(xli.ServiceConfig{
		UploadRoot:   uploadRoot,
		PostsRoot:    postsRoot,
		DocsRoot:     docsRoot,
		TemplatePath: templatePath,
		Naming:       xli.DefaultNaming,
	}, store, gw, fsmgr, db, xli.NewNopLogger(), xli.RealClock{}, xli.NopSleeper{})

	skel, err := svc.GenerateSkeleton(ctx)
	if err != nil {
		return fmt.Errorf("skeleton: %w", err)
	}
	fmt.Fprintf(out, "skeleton: %d post(s), %d date dir(s)\n", skel.Posts, skel.Dates)

	imagePath := filepath.Join(uploadRoot, "2024", "3", "4", "dog.png")
	if err := os.WriteFile(imagePath, pngHeader, 0644); err != nil {
		return fmt.Errorf("writing fixture image: %w", err)
	}

	up, err := svc.UploadAll(ctx)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	fmt.Fprintf(out, "upload: %d uploaded, %d skipped\n", up.Uploaded, up.Skipped)
	if up.Uploaded != 1 {
		return fmt.Errorf("expected 1 upload, got %d", up.Uploaded)
	}
	if !gw.Has("2024/3/4/dog") {
		return fmt.Errorf("gateway is missing the uploaded asset")
	}

	// A second run must be a no-op.
	up2, err := svc.UploadAll(ctx)
	if err != nil {
		return fmt.Errorf("second upload: %w", err)
	}
	if up2.Uploaded != 0 {
		return fmt.Errorf("second upload was not idempotent: %d uploaded", up2.Uploaded)
	}
	fmt.Fprintln(out, "upload: second run is a no-op")

	docs, err := svc.EmitDocs(ctx)
	if err != nil {
		return fmt.Errorf("docs: %w", err)
	}
	fmt.Fprintf(out, "docs: %d emitted\n", docs.Emitted)

	if _, err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	fmt.Fprintln(out, "refresh: ok")

	del, err := svc.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Fprintf(out, "delete: %d destroyed\n", del.Destroyed)
	if gw.Count() != 0 {
		return fmt.Errorf("gateway still holds %d asset(s) after delete", gw.Count())
	}

	fmt.Fprintln(out, "selftest passed")
	return nil
}
