package xli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// RecordPlaceholder is the substitution token in the documentation template.
// It is replaced with the JSON-serialized asset record when a target file is
// first materialized.
const RecordPlaceholder = "{{record}}"

// DocsSummary reports the outcome of a doc emission batch.
type DocsSummary struct {
	Emitted int
	Failed  int
}

// EmitDocs materializes per-asset documentation from the archive. For each
// live record: the target doc file is created from the template on first
// sight, then an HTML fragment embedding the remote URL plus a footer line
// is appended, and the fragment alone is written to a sibling artifact file.
//
// Appending is not idempotent across runs; within a run each identity is
// processed at most once per target. Failures are isolated per identity.
func (s *Service) EmitDocs(ctx context.Context) (*DocsSummary, error) {
	archive, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading archive: %w", err)
	}

	template, err := s.fsmgr.ReadFile(s.cfg.TemplatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, s.cfg.TemplatePath)
		}
		return nil, fmt.Errorf("reading template: %w", err)
	}

	summary := &DocsSummary{}
	emitted := map[string]bool{}

	for _, record := range archive.Uploaded {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if emitted[record.Identity] {
			continue
		}
		emitted[record.Identity] = true

		if err := s.emitOne(record, template); err != nil {
			s.logger.Error("doc emission failed", "identity", record.Identity, "error", err)
			summary.Failed++
			continue
		}
		summary.Emitted++
		s.logger.Debug("doc emitted", "identity", record.Identity)
	}

	s.logger.Info("docs complete", "emitted", summary.Emitted, "failed", summary.Failed)
	return summary, nil
}

// emitOne writes the documentation artifacts for a single record.
func (s *Service) emitOne(record AssetRecord, template []byte) error {
	dated, err := ParseDatedIdentity(record.Identity)
	if err != nil {
		return err
	}
	slug := s.cfg.Naming.Slug(dated)
	target := filepath.Join(s.cfg.DocsRoot, slug+".md")
	artifact := filepath.Join(s.cfg.DocsRoot, slug+".html")

	exists, err := s.fsmgr.Exists(target)
	if err != nil {
		return fmt.Errorf("checking doc target: %w", err)
	}
	if !exists {
		serialized, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("serializing record: %w", err)
		}
		content := strings.ReplaceAll(string(template), RecordPlaceholder, string(serialized))
		if err := s.fsmgr.WriteFile(target, []byte(content)); err != nil {
			return fmt.Errorf("materializing doc: %w", err)
		}
	}

	fragment := Fragment(record, dated)
	section := fragment + fmt.Sprintf("\n[%s]: %s\n", slug, record.RemoteURL)

	if err := s.fsmgr.AppendFile(target, []byte(section)); err != nil {
		return fmt.Errorf("appending doc section: %w", err)
	}

	if err := s.fsmgr.WriteFile(artifact, []byte(fragment)); err != nil {
		return fmt.Errorf("writing fragment artifact: %w", err)
	}
	return nil
}

// Fragment renders the presentational HTML for one asset.
func Fragment(record AssetRecord, dated DatedIdentity) string {
	return fmt.Sprintf("<p>\n  <img src=%q alt=%q loading=\"lazy\" />\n</p>\n",
		record.RemoteURL, dated.Name)
}
