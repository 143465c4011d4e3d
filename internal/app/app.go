package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/BuntinJP/xlog-images/internal/archive"
	"github.com/BuntinJP/xlog-images/internal/config"
	"github.com/BuntinJP/xlog-images/internal/database"
	"github.com/BuntinJP/xlog-images/internal/fs"
	"github.com/BuntinJP/xlog-images/internal/gateway"
	"github.com/BuntinJP/xlog-images/internal/xli"
)

// App is the application layer between the CLI and the Service.
// It constructs all dependencies from config, exposes the high-level
// operations, and manages the operation record and DB lifecycle on Close.
type App struct {
	cfg     *config.Config
	store   xli.ArchiveStore
	gateway xli.Gateway
	db      xli.Database
	service *xli.Service
	op      *OperationRecord
	logFile *os.File
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "UploadAll", "Refresh").
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Upload.Ignore)

	gw, err := gateway.NewGatewayFromConfig(ctx, cfg.Gateway)
	if err != nil {
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	store, err := archive.NewStoreFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating archive store: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := xli.NewService(serviceConfig(cfg), store, gw, fsmgr, db,
		&slogAdapter{l: logger}, xli.RealClock{}, xli.RealSleeper{})

	return &App{
		cfg:     cfg,
		store:   store,
		gateway: gw,
		db:      db,
		service: svc,
		op:      NewOperationRecord(operation, ""),
		logFile: logFile,
	}, nil
}

// serviceConfig maps the file config onto the service's view of it.
func serviceConfig(cfg *config.Config) xli.ServiceConfig {
	return xli.ServiceConfig{
		UploadRoot:        cfg.UploadRoot,
		PostsRoot:         cfg.PostsRoot,
		DocsRoot:          cfg.DocsRoot,
		TemplatePath:      cfg.TemplatePath,
		Naming:            xli.Naming{SlugFormat: cfg.Naming.SlugFormat, DateFormat: cfg.Naming.DateFormat},
		DeleteInterval:    cfg.Reconcile.DeleteInterval.Duration,
		UploadConcurrency: cfg.Upload.Concurrency,
		ListMax:           cfg.Upload.ListMax,
		SamplePrefix:      cfg.Upload.SamplePrefix,
	}
}

// persistOperation saves the operation record to the database, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// UploadAll uploads every unarchived local image to the gateway.
func (a *App) UploadAll(ctx context.Context) (*xli.UploadSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	summary, err := a.service.UploadAll(ctx)
	if err != nil {
		a.op.Status = "error"
	}
	return summary, err
}

// GenerateSkeleton pre-creates dated upload directories from post dates.
func (a *App) GenerateSkeleton(ctx context.Context) (*xli.SkeletonSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	summary, err := a.service.GenerateSkeleton(ctx)
	if err != nil {
		a.op.Status = "error"
	}
	return summary, err
}

// EmitDocs materializes documentation artifacts for every archived asset.
func (a *App) EmitDocs(ctx context.Context) (*xli.DocsSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	summary, err := a.service.EmitDocs(ctx)
	if err != nil {
		a.op.Status = "error"
	}
	return summary, err
}

// DeleteAll destroys every live remote asset, moving records to destroyed.
func (a *App) DeleteAll(ctx context.Context) (*xli.DeleteSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	summary, err := a.service.DeleteAll(ctx)
	if err != nil {
		a.op.Status = "error"
	}
	return summary, err
}

// Refresh backs up the ledger and prunes settled destroyed records.
func (a *App) Refresh(ctx context.Context) (*xli.RefreshSummary, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	summary, err := a.service.Refresh(ctx)
	if err != nil {
		a.op.Status = "error"
	}
	return summary, err
}

// ListRemote returns the remote listing.
func (a *App) ListRemote(ctx context.Context, max int) ([]xli.RemoteAsset, error) {
	return a.service.ListRemote(ctx, max)
}

// GetHistory returns the most recent recorded operations.
func (a *App) GetHistory(limit int) ([]*xli.Operation, error) {
	return a.service.GetHistory(limit)
}

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
