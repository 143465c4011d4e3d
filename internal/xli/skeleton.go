package xli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DateKey is a post's publish date, used only to pre-create the directory
// skeleton that asset paths will populate. It is never persisted.
type DateKey struct {
	Year  int
	Month int
	Day   int
}

// Dir returns the upload subdirectory for this date, e.g. "2024/5/6".
// Month and day are unpadded to match the identity shape.
func (d DateKey) Dir() string {
	return filepath.Join(strconv.Itoa(d.Year), strconv.Itoa(d.Month), strconv.Itoa(d.Day))
}

var datePattern = regexp.MustCompile(`date["']?\s*[:=]\s*["']?(\d{4})-(\d{2})-(\d{2})`)

// frontMatter is the subset of post metadata the skeleton generator cares
// about. Posts carry more fields; they are ignored.
type frontMatter struct {
	Date string `yaml:"date"`
}

// ExtractPostDate finds the first publish date in a post document. YAML
// front matter (--- delimited) is tried first; a plain regexp scan for a
// date field followed by YYYY-MM-DD covers posts without front matter.
func ExtractPostDate(content []byte) (DateKey, bool) {
	if meta, ok := splitFrontMatter(content); ok {
		var fm frontMatter
		if err := yaml.Unmarshal(meta, &fm); err == nil && fm.Date != "" {
			if m := datePattern.FindStringSubmatch("date: " + fm.Date); m != nil {
				return dateKeyFromMatch(m), true
			}
		}
	}

	if m := datePattern.FindSubmatch(content); m != nil {
		return dateKeyFromMatch([]string{"", string(m[1]), string(m[2]), string(m[3])}), true
	}
	return DateKey{}, false
}

func dateKeyFromMatch(m []string) DateKey {
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return DateKey{Year: year, Month: month, Day: day}
}

// splitFrontMatter returns the YAML block of a "---" delimited front matter,
// if the document starts with one.
func splitFrontMatter(content []byte) ([]byte, bool) {
	delim := []byte("---")
	if !bytes.HasPrefix(content, delim) {
		return nil, false
	}
	rest := content[len(delim):]
	if len(rest) == 0 || (rest[0] != '\n' && !bytes.HasPrefix(rest, []byte("\r\n"))) {
		return nil, false
	}
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, false
	}
	return rest[:end], true
}

// SkeletonSummary reports the outcome of skeleton generation.
type SkeletonSummary struct {
	Posts int // post documents scanned
	Dates int // distinct dates found
}

// GenerateSkeleton scans the posts corpus, extracts each post's publish
// date, and creates the dated upload directory plus a placeholder file for
// every distinct date. Existing directories are left alone, so re-running
// is always safe.
func (s *Service) GenerateSkeleton(ctx context.Context) (*SkeletonSummary, error) {
	files, err := s.fsmgr.FindFiles(s.cfg.PostsRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning posts: %w", err)
	}

	summary := &SkeletonSummary{}
	seen := map[DateKey]bool{}

	for _, f := range files {
		if filepath.Ext(f.Path) != ".md" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Posts++

		content, err := s.readAll(f.Path)
		if err != nil {
			s.logger.Warn("skipping unreadable post", "path", f.Path, "error", err)
			continue
		}

		date, ok := ExtractPostDate(content)
		if !ok {
			s.logger.Debug("post has no date", "path", f.Path)
			continue
		}
		if seen[date] {
			continue
		}
		seen[date] = true

		dir := filepath.Join(s.cfg.UploadRoot, date.Dir())
		if err := s.fsmgr.EnsureDir(dir); err != nil {
			return summary, fmt.Errorf("creating %s: %w", dir, err)
		}
		summary.Dates++
		s.logger.Debug("skeleton directory ready", "dir", dir)
	}

	s.logger.Info("skeleton complete", "posts", summary.Posts, "dates", summary.Dates)
	return summary, nil
}

func (s *Service) readAll(path string) ([]byte, error) {
	f, err := s.fsmgr.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
