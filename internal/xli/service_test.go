package xli_test

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/BuntinJP/xlog-images/internal/archive"
	"github.com/BuntinJP/xlog-images/internal/testutil"
	"github.com/BuntinJP/xlog-images/internal/xli"
)

// stubGateway scripts gateway behavior without touching the filesystem, so
// upload failures and remote listings can be controlled per test.
type stubGateway struct {
	mu     sync.Mutex
	assets map[string]xli.RemoteAsset

	uploadErr  error
	destroyErr error
	listErr    error
	uploads    int
}

func newStubGateway() *stubGateway {
	return &stubGateway{assets: make(map[string]xli.RemoteAsset)}
}

func (g *stubGateway) seed(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.assets[id] = xli.RemoteAsset{
		RemoteID:         id,
		SecureURL:        "https://cdn.invalid/" + id,
		OriginalFilename: filepath.Base(id) + ".png",
	}
}

func (g *stubGateway) Upload(_ context.Context, path, requestedID string) (*xli.UploadResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.uploadErr != nil {
		return nil, g.uploadErr
	}
	g.uploads++
	url := "https://cdn.invalid/" + requestedID
	g.assets[requestedID] = xli.RemoteAsset{
		RemoteID:         requestedID,
		SecureURL:        url,
		OriginalFilename: filepath.Base(path),
	}
	return &xli.UploadResult{RemoteID: requestedID, SecureURL: url}, nil
}

func (g *stubGateway) Destroy(_ context.Context, remoteID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.destroyErr != nil {
		return g.destroyErr
	}
	delete(g.assets, remoteID)
	return nil
}

func (g *stubGateway) List(_ context.Context, max int) ([]xli.RemoteAsset, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	var out []xli.RemoteAsset
	for _, a := range g.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (g *stubGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.assets)
}

var _ xli.Gateway = (*stubGateway)(nil)

// testDeps bundles the doubles one service test needs.
type testDeps struct {
	store   *archive.MemoryStore
	gateway *stubGateway
	fsmgr   *testutil.MockFilesystemManager
	logger  *testutil.CapturingLogger
	clock   *testutil.StubClock
	sleeper *testutil.CountingSleeper
}

func newTestService(t *testing.T, cfg xli.ServiceConfig) (*xli.Service, *testDeps) {
	t.Helper()

	deps := &testDeps{
		store:   archive.NewMemoryStore(),
		gateway: newStubGateway(),
		fsmgr:   testutil.NewMockFilesystemManager(),
		logger:  testutil.NewCapturingLogger(),
		clock:   testutil.FixedClock(),
		sleeper: testutil.NewCountingSleeper(),
	}
	if err := deps.store.Init(); err != nil {
		t.Fatalf("initializing store: %v", err)
	}

	svc := xli.NewService(cfg, deps.store, deps.gateway, deps.fsmgr, nil, deps.logger, deps.clock, deps.sleeper)
	return svc, deps
}

func TestService_UploadAll(t *testing.T) {
	ctx := context.Background()
	cfg := xli.ServiceConfig{UploadRoot: "/upload"}

	t.Run("uploads new images and skips non-images", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.png")
		deps.fsmgr.AddImage("/upload/2024/1/2/dog.png")
		deps.fsmgr.AddText("/upload/notes.txt", "not an image")

		summary, err := svc.UploadAll(ctx)
		if err != nil {
			t.Fatalf("UploadAll() error = %v", err)
		}
		if summary.Uploaded != 2 || summary.Skipped != 1 || summary.Failed != 0 {
			t.Errorf("UploadAll() = %+v, want 2 uploaded, 1 skipped", summary)
		}
		if summary.Manifest == "" {
			t.Error("UploadAll() did not write a run manifest")
		}

		a, err := deps.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		for _, id := range []string{"2024/1/2/cat", "2024/1/2/dog"} {
			if a.FindByIdentity(id) == nil {
				t.Errorf("archive is missing %s", id)
			}
		}
	})

	t.Run("files differing only in extension upload once", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.jpg")
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.png")

		summary, err := svc.UploadAll(ctx)
		if err != nil {
			t.Fatalf("UploadAll() error = %v", err)
		}
		if summary.Uploaded != 1 || summary.Skipped != 1 || summary.Failed != 0 {
			t.Errorf("UploadAll() = %+v, want 1 uploaded, 1 skipped", summary)
		}
		if deps.gateway.uploads != 1 {
			t.Errorf("gateway saw %d uploads, want 1", deps.gateway.uploads)
		}

		a, err := deps.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if a.FindByIdentity("2024/1/2/cat") == nil {
			t.Error("archive is missing the uploaded record")
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.png")

		if _, err := svc.UploadAll(ctx); err != nil {
			t.Fatalf("first UploadAll() error = %v", err)
		}
		summary, err := svc.UploadAll(ctx)
		if err != nil {
			t.Fatalf("second UploadAll() error = %v", err)
		}
		if summary.Uploaded != 0 || summary.Skipped != 1 {
			t.Errorf("second UploadAll() = %+v, want 0 uploaded, 1 skipped", summary)
		}
		if deps.gateway.uploads != 1 {
			t.Errorf("gateway saw %d uploads, want 1", deps.gateway.uploads)
		}
	})

	t.Run("adopts assets already present remotely", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.png")
		deps.gateway.seed("2024/1/2/cat")

		summary, err := svc.UploadAll(ctx)
		if err != nil {
			t.Fatalf("UploadAll() error = %v", err)
		}
		if summary.Adopted != 1 || summary.Uploaded != 0 {
			t.Errorf("UploadAll() = %+v, want 1 adopted, 0 uploaded", summary)
		}
		if deps.gateway.uploads != 0 {
			t.Errorf("gateway saw %d uploads, want 0", deps.gateway.uploads)
		}

		a, err := deps.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		got := a.FindByIdentity("2024/1/2/cat")
		if got == nil {
			t.Fatal("adopted record missing from archive")
		}
		if got.RemoteURL != "https://cdn.invalid/2024/1/2/cat" {
			t.Errorf("adopted record URL = %q", got.RemoteURL)
		}
	})

	t.Run("continues when the remote listing fails", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.png")
		deps.gateway.listErr = errors.New("listing down")

		summary, err := svc.UploadAll(ctx)
		if err != nil {
			t.Fatalf("UploadAll() error = %v", err)
		}
		if summary.Uploaded != 1 {
			t.Errorf("UploadAll() uploaded = %d, want 1", summary.Uploaded)
		}
		if !deps.logger.Contains("remote listing unavailable") {
			t.Error("missing warning about failed listing")
		}
	})

	t.Run("fails when every upload fails", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.png")
		deps.fsmgr.AddImage("/upload/2024/1/2/dog.png")
		deps.gateway.uploadErr = errors.New("quota exceeded")

		summary, err := svc.UploadAll(ctx)
		if err == nil {
			t.Fatal("UploadAll() expected error when all uploads fail")
		}
		if summary.Failed != 2 {
			t.Errorf("UploadAll() failed = %d, want 2", summary.Failed)
		}
	})

	t.Run("partial failure is not an error", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		deps.fsmgr.AddImage("/upload/2024/1/2/cat.png")
		deps.gateway.seed("2024/1/2/dog")
		deps.fsmgr.AddImage("/upload/2024/1/2/dog.png")
		deps.gateway.uploadErr = errors.New("quota exceeded")

		summary, err := svc.UploadAll(ctx)
		if err != nil {
			t.Fatalf("UploadAll() error = %v", err)
		}
		if summary.Adopted != 1 || summary.Failed != 1 {
			t.Errorf("UploadAll() = %+v, want 1 adopted, 1 failed", summary)
		}
	})
}

func TestService_DeleteAll(t *testing.T) {
	ctx := context.Background()
	cfg := xli.ServiceConfig{UploadRoot: "/upload"}

	seedArchive := func(t *testing.T, deps *testDeps, ids ...string) {
		t.Helper()
		a := xli.NewArchive()
		for _, id := range ids {
			if err := a.Append(record(id)); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			deps.gateway.seed(id)
		}
		if err := deps.store.Save(a); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	t.Run("destroys every live asset with paced calls", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		seedArchive(t, deps, "2024/1/2/cat", "2024/1/2/dog", "2024/1/3/bird")

		summary, err := svc.DeleteAll(ctx)
		if err != nil {
			t.Fatalf("DeleteAll() error = %v", err)
		}
		if summary.Destroyed != 3 || summary.Failed != 0 {
			t.Errorf("DeleteAll() = %+v, want 3 destroyed", summary)
		}
		if deps.gateway.count() != 0 {
			t.Errorf("gateway still holds %d assets", deps.gateway.count())
		}
		// Pacing happens between items, not before the first.
		if deps.sleeper.Count() != 2 {
			t.Errorf("sleeper called %d times, want 2", deps.sleeper.Count())
		}

		a, err := deps.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(a.Uploaded) != 0 || len(a.Destroyed) != 3 {
			t.Errorf("archive partitions = %d live, %d destroyed", len(a.Uploaded), len(a.Destroyed))
		}
	})

	t.Run("keeps the record when destroy fails", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		seedArchive(t, deps, "2024/1/2/cat")
		deps.gateway.destroyErr = errors.New("gateway down")

		summary, err := svc.DeleteAll(ctx)
		if err != nil {
			t.Fatalf("DeleteAll() error = %v", err)
		}
		if summary.Destroyed != 0 || summary.Failed != 1 {
			t.Errorf("DeleteAll() = %+v, want 1 failed", summary)
		}

		a, err := deps.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if a.FindByIdentity("2024/1/2/cat") == nil {
			t.Error("record of failed destroy was moved out of uploaded")
		}
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		seedArchive(t, deps, "2024/1/2/cat", "2024/1/2/dog")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := svc.DeleteAll(cancelled); !errors.Is(err, context.Canceled) {
			t.Errorf("DeleteAll() error = %v, want context.Canceled", err)
		}
	})
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	cfg := xli.ServiceConfig{UploadRoot: "/upload"}

	t.Run("backs up then prunes settled deletions", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)
		a := xli.NewArchive()
		if err := a.Append(record("2024/1/2/cat")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := a.MoveToDestroyed("2024/1/2/cat"); err != nil {
			t.Fatalf("MoveToDestroyed() error = %v", err)
		}
		// dog was destroyed and then re-uploaded: its history must survive.
		if err := a.Append(record("2024/1/2/dog")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := a.MoveToDestroyed("2024/1/2/dog"); err != nil {
			t.Fatalf("MoveToDestroyed() error = %v", err)
		}
		if err := a.Append(record("2024/1/2/dog")); err != nil {
			t.Fatalf("re-Append() error = %v", err)
		}
		if err := deps.store.Save(a); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		summary, err := svc.Refresh(ctx)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if summary.BackupLocation == "" {
			t.Error("Refresh() took no backup")
		}
		if summary.Pruned != 1 {
			t.Errorf("Refresh() pruned = %d, want 1", summary.Pruned)
		}

		got, err := deps.store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.FindDestroyed("2024/1/2/cat") != nil {
			t.Error("settled deletion survived refresh")
		}
		if got.FindDestroyed("2024/1/2/dog") == nil {
			t.Error("re-uploaded identity lost its deletion history")
		}
	})

	t.Run("second refresh on the same day keeps the first backup", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)

		if _, err := svc.Refresh(ctx); err != nil {
			t.Fatalf("first Refresh() error = %v", err)
		}
		summary, err := svc.Refresh(ctx)
		if err != nil {
			t.Fatalf("second Refresh() error = %v", err)
		}
		if summary.BackupLocation != "" {
			t.Errorf("second Refresh() backup = %q, want none", summary.BackupLocation)
		}
		if deps.store.BackupCount() != 1 {
			t.Errorf("backup count = %d, want 1", deps.store.BackupCount())
		}
		if !deps.logger.Contains("backup for today already exists") {
			t.Error("missing warning about the same-day backup")
		}
	})

	t.Run("next day gets a fresh backup", func(t *testing.T) {
		svc, deps := newTestService(t, cfg)

		if _, err := svc.Refresh(ctx); err != nil {
			t.Fatalf("first Refresh() error = %v", err)
		}
		deps.clock.Advance(24 * time.Hour)
		summary, err := svc.Refresh(ctx)
		if err != nil {
			t.Fatalf("second Refresh() error = %v", err)
		}
		if summary.BackupLocation == "" {
			t.Error("next-day Refresh() took no backup")
		}
		if deps.store.BackupCount() != 2 {
			t.Errorf("backup count = %d, want 2", deps.store.BackupCount())
		}
	})
}

func TestService_GetHistory(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	svc := xli.NewService(xli.ServiceConfig{UploadRoot: "/upload"},
		archive.NewMemoryStore(), newStubGateway(), testutil.NewMockFilesystemManager(),
		db, xli.NewNopLogger(), testutil.FixedClock(), testutil.NewCountingSleeper())

	for _, name := range []string{"UploadAll", "Refresh"} {
		if _, err := db.CreateOperation(name, ""); err != nil {
			t.Fatalf("CreateOperation(%s) error = %v", name, err)
		}
	}

	ops, err := svc.GetHistory(10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(ops) != 2 || ops[0].Operation != "Refresh" {
		t.Errorf("GetHistory() = %+v, want 2 ops newest first", ops)
	}
}

func TestService_ListRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("filters the sample namespace", func(t *testing.T) {
		svc, deps := newTestService(t, xli.ServiceConfig{UploadRoot: "/upload", SamplePrefix: "samples/"})
		deps.gateway.seed("2024/1/2/cat")
		deps.gateway.seed("samples/demo")

		assets, err := svc.ListRemote(ctx, 10)
		if err != nil {
			t.Fatalf("ListRemote() error = %v", err)
		}
		if len(assets) != 1 || assets[0].RemoteID != "2024/1/2/cat" {
			t.Errorf("ListRemote() = %+v, want only the dated asset", assets)
		}
	})

	t.Run("wraps gateway failures", func(t *testing.T) {
		svc, deps := newTestService(t, xli.ServiceConfig{UploadRoot: "/upload"})
		deps.gateway.listErr = errors.New("listing down")

		_, err := svc.ListRemote(ctx, 10)
		var gerr *xli.GatewayError
		if !errors.As(err, &gerr) || gerr.Op != "list" {
			t.Errorf("ListRemote() error = %v, want GatewayError{Op: list}", err)
		}
	})
}
