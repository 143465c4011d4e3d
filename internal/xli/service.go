package xli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ServiceConfig carries the filesystem roots and tunables the service needs.
// Everything here comes from the config file; nothing is global.
type ServiceConfig struct {
	UploadRoot   string
	PostsRoot    string
	DocsRoot     string
	TemplatePath string

	Naming Naming

	// DeleteInterval paces destroy calls to respect gateway rate limits.
	DeleteInterval time.Duration
	// UploadConcurrency bounds parallel upload workers.
	UploadConcurrency int
	// ListMax caps remote listings (further capped at MaxListResults).
	ListMax int
	// SamplePrefix is the reserved remote namespace excluded from listings.
	SamplePrefix string
}

// DefaultUploadConcurrency is used when the config does not set one.
const DefaultUploadConcurrency = 4

// Service is the orchestration layer that reconciles the local upload root,
// the archive ledger and the remote gateway.
type Service struct {
	cfg     ServiceConfig
	store   ArchiveStore
	gateway Gateway
	fsmgr   FilesystemManager
	db      Database
	logger  Logger
	clock   Clock
	sleeper Sleeper
}

// NewService creates a Service with the provided dependencies.
func NewService(cfg ServiceConfig, store ArchiveStore, gateway Gateway, fsmgr FilesystemManager, db Database, logger Logger, clock Clock, sleeper Sleeper) *Service {
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = DefaultUploadConcurrency
	}
	return &Service{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		fsmgr:   fsmgr,
		db:      db,
		logger:  logger,
		clock:   clock,
		sleeper: sleeper,
	}
}

// UploadSummary reports the outcome of one upload batch.
type UploadSummary struct {
	Uploaded int // new uploads pushed to the gateway
	Adopted  int // records created from assets already present remotely
	Skipped  int // non-images and identities already archived
	Failed   int
	// Manifest is the location of the dated run listing, empty if nothing
	// was touched.
	Manifest string
}

// uploadJob is one file queued for a worker.
type uploadJob struct {
	identity string
	path     string
}

// uploadOutcome is a worker's result, merged by the single collector.
type uploadOutcome struct {
	record AssetRecord
	err    error
}

// UploadAll enumerates the upload root and brings every local image into the
// archive: images already archived are skipped, images already present
// remotely are adopted without uploading, and the rest are uploaded with the
// identity as the requested remote key.
//
// Uploads run on a bounded worker pool with no ordering guarantee; all
// archive appends happen on this goroutine so the uniqueness invariant is
// never raced. The archive is written once at the end of the batch, along
// with a dated manifest of just the records touched in this run.
func (s *Service) UploadAll(ctx context.Context) (*UploadSummary, error) {
	archive, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading archive: %w", err)
	}

	files, err := s.fsmgr.FindFiles(s.cfg.UploadRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning upload root: %w", err)
	}

	remote, err := s.remoteIndex(ctx)
	if err != nil {
		// The local archive still guards against duplicates; a failed
		// listing only loses the adopt-without-upload shortcut.
		s.logger.Warn("remote listing unavailable, uploading without existence check", "error", err)
		remote = map[string]RemoteAsset{}
	}

	summary := &UploadSummary{}
	var touched []AssetRecord
	var jobs []uploadJob
	queued := map[string]bool{}

	for _, f := range files {
		if !f.IsImage() {
			s.logger.Debug("skipping non-image", "path", f.Path, "contentType", f.ContentType)
			summary.Skipped++
			continue
		}

		identity, err := DeriveIdentity(f.Path, s.cfg.UploadRoot)
		if err != nil {
			return nil, fmt.Errorf("deriving identity: %w", err)
		}

		if archive.FindByIdentity(identity) != nil {
			s.logger.Debug("already archived", "identity", identity)
			summary.Skipped++
			continue
		}

		// Two files differing only in extension derive the same identity;
		// the first one seen wins so the gateway is hit at most once.
		if queued[identity] {
			s.logger.Warn("duplicate identity in upload root, keeping the first file",
				"identity", identity, "path", f.Path)
			summary.Skipped++
			continue
		}
		queued[identity] = true

		if asset, ok := remote[identity]; ok {
			record := recordFromRemote(asset, filepath.Base(f.Path))
			if err := archive.Append(record); err != nil {
				return nil, fmt.Errorf("adopting remote asset: %w", err)
			}
			touched = append(touched, record)
			summary.Adopted++
			s.logger.Info("adopted existing remote asset", "identity", identity)
			continue
		}

		jobs = append(jobs, uploadJob{identity: identity, path: f.Path})
	}

	// Dispatch uploads to workers; collect and append on this goroutine.
	if len(jobs) > 0 {
		jobCh := make(chan uploadJob)
		outCh := make(chan uploadOutcome)

		workers := s.cfg.UploadConcurrency
		if workers > len(jobs) {
			workers = len(jobs)
		}
		for i := 0; i < workers; i++ {
			go func() {
				for job := range jobCh {
					outCh <- s.uploadOne(ctx, job)
				}
			}()
		}
		go func() {
			for _, job := range jobs {
				jobCh <- job
			}
			close(jobCh)
		}()

		for range jobs {
			out := <-outCh
			if out.err != nil {
				s.logger.Error("upload failed", "error", out.err)
				summary.Failed++
				continue
			}
			if err := archive.Append(out.record); err != nil {
				s.logger.Error("recording upload failed", "identity", out.record.Identity, "error", err)
				summary.Failed++
				continue
			}
			touched = append(touched, out.record)
			summary.Uploaded++
			s.logger.Info("uploaded", "identity", out.record.Identity, "url", out.record.RemoteURL)
		}
	}

	if len(touched) > 0 {
		if err := s.store.Save(archive); err != nil {
			return nil, fmt.Errorf("saving archive: %w", err)
		}
		label := s.clock.Now().Format("20060102")
		manifest, err := s.store.WriteRunManifest(touched, label)
		if err != nil {
			return nil, fmt.Errorf("writing run manifest: %w", err)
		}
		summary.Manifest = manifest
	}

	if summary.Failed > 0 && summary.Uploaded == 0 && summary.Adopted == 0 {
		return summary, fmt.Errorf("all %d uploads failed", summary.Failed)
	}

	s.logger.Info("upload batch complete",
		"uploaded", summary.Uploaded, "adopted", summary.Adopted,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// uploadOne pushes a single file to the gateway.
func (s *Service) uploadOne(ctx context.Context, job uploadJob) uploadOutcome {
	result, err := s.gateway.Upload(ctx, job.path, job.identity)
	if err != nil {
		return uploadOutcome{err: &GatewayError{Op: "upload", Identity: job.identity, Err: err}}
	}
	return uploadOutcome{record: AssetRecord{
		Identity:         result.RemoteID,
		RemoteURL:        result.SecureURL,
		OriginalFilename: filepath.Base(job.path),
		RemoteMetadata:   result.Metadata,
	}}
}

// remoteIndex fetches the remote listing and indexes it by identity,
// excluding the reserved sample namespace.
func (s *Service) remoteIndex(ctx context.Context) (map[string]RemoteAsset, error) {
	assets, err := s.ListRemote(ctx, s.cfg.ListMax)
	if err != nil {
		return nil, err
	}
	index := make(map[string]RemoteAsset, len(assets))
	for _, a := range assets {
		index[a.RemoteID] = a
	}
	return index, nil
}

// ListRemote returns up to max remote assets of the upload category,
// excluding the reserved sample namespace. The listing, not the local
// archive, is the source of truth for what actually exists remotely.
func (s *Service) ListRemote(ctx context.Context, max int) ([]RemoteAsset, error) {
	if max <= 0 || max > MaxListResults {
		max = MaxListResults
	}
	assets, err := s.gateway.List(ctx, max)
	if err != nil {
		return nil, &GatewayError{Op: "list", Err: err}
	}

	filtered := assets[:0]
	for _, a := range assets {
		if s.cfg.SamplePrefix != "" && strings.HasPrefix(a.RemoteID, s.cfg.SamplePrefix) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}

// DeleteSummary reports the outcome of one delete batch.
type DeleteSummary struct {
	Destroyed int
	Failed    int
}

// DeleteAll destroys every asset currently in the uploaded partition. The
// archive is persisted after every successful move so a crash mid-run loses
// at most the in-flight deletion. A single failed destroy leaves its record
// in uploaded and the loop continues; calls are paced by DeleteInterval.
func (s *Service) DeleteAll(ctx context.Context) (*DeleteSummary, error) {
	archive, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading archive: %w", err)
	}

	identities := make([]string, len(archive.Uploaded))
	for i, r := range archive.Uploaded {
		identities[i] = r.Identity
	}

	summary := &DeleteSummary{}
	for i, identity := range identities {
		if i > 0 {
			s.sleeper.Sleep(ctx, s.cfg.DeleteInterval)
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := s.gateway.Destroy(ctx, identity); err != nil {
			gerr := &GatewayError{Op: "destroy", Identity: identity, Err: err}
			s.logger.Error("destroy failed, keeping record", "identity", identity, "error", gerr)
			summary.Failed++
			continue
		}

		if err := archive.MoveToDestroyed(identity); err != nil {
			return summary, fmt.Errorf("moving record: %w", err)
		}
		if err := s.store.Save(archive); err != nil {
			return summary, fmt.Errorf("saving archive: %w", err)
		}
		summary.Destroyed++
		s.logger.Info("destroyed", "identity", identity)
	}

	return summary, nil
}

// RefreshSummary reports the outcome of a refresh.
type RefreshSummary struct {
	BackupLocation string
	Pruned         int
}

// Refresh backs up the archive, then forgets destroyed records whose
// identity is no longer live. A destroyed identity that was re-uploaded
// keeps its destroyed record so the deletion history survives. Running
// refresh twice in a row is a no-op after the first backup.
func (s *Service) Refresh(ctx context.Context) (*RefreshSummary, error) {
	archive, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading archive: %w", err)
	}

	summary := &RefreshSummary{}
	label := s.clock.Now().Format("20060102")
	location, err := s.store.Backup(archive, label)
	switch {
	case errors.Is(err, ErrBackupCollision):
		// One backup per calendar day: a second refresh keeps the first.
		s.logger.Warn("backup for today already exists, keeping it", "label", label)
	case err != nil:
		return nil, fmt.Errorf("backing up archive: %w", err)
	default:
		summary.BackupLocation = location
	}

	summary.Pruned = archive.PruneDestroyed()
	if err := s.store.Save(archive); err != nil {
		return nil, fmt.Errorf("saving archive: %w", err)
	}

	s.logger.Info("refresh complete", "pruned", summary.Pruned, "backup", summary.BackupLocation)
	return summary, nil
}

// GetHistory returns the most recent recorded operations, newest first.
func (s *Service) GetHistory(limit int) ([]*Operation, error) {
	ops, err := s.db.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// recordFromRemote builds an archive record from a remote listing entry.
func recordFromRemote(asset RemoteAsset, localFilename string) AssetRecord {
	original := asset.OriginalFilename
	if original == "" {
		original = localFilename
	}
	return AssetRecord{
		Identity:         asset.RemoteID,
		RemoteURL:        asset.SecureURL,
		OriginalFilename: original,
		RemoteMetadata:   asset.Metadata,
	}
}
