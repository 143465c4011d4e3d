package xli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DeriveIdentity derives the canonical asset identity for a local file:
// the slash-separated path relative to uploadRoot with the file extension
// removed. The identity is the idempotency key for every downstream
// operation (archive membership, remote key, doc target), so the derivation
// must be deterministic and must never leak the root prefix.
func DeriveIdentity(path, uploadRoot string) (string, error) {
	absRoot, err := filepath.Abs(uploadRoot)
	if err != nil {
		return "", fmt.Errorf("resolving upload root: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	rel = filepath.ToSlash(rel)
	if ext := filepath.Ext(rel); ext != "" {
		rel = rel[:len(rel)-len(ext)]
	}
	return rel, nil
}

// DatedIdentity is the parsed form of an identity shaped YYYY/M/D/name.
type DatedIdentity struct {
	Year  int
	Month int
	Day   int
	Name  string
}

// ParseDatedIdentity splits an identity of the shape YYYY/M/D/name into its
// components. Anything else fails with ErrMalformedIdentity.
func ParseDatedIdentity(identity string) (DatedIdentity, error) {
	parts := strings.Split(identity, "/")
	if len(parts) != 4 {
		return DatedIdentity{}, fmt.Errorf("%w: %q", ErrMalformedIdentity, identity)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 || year < 1000 {
		return DatedIdentity{}, fmt.Errorf("%w: bad year in %q", ErrMalformedIdentity, identity)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return DatedIdentity{}, fmt.Errorf("%w: bad month in %q", ErrMalformedIdentity, identity)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > 31 {
		return DatedIdentity{}, fmt.Errorf("%w: bad day in %q", ErrMalformedIdentity, identity)
	}
	if parts[3] == "" {
		return DatedIdentity{}, fmt.Errorf("%w: empty name in %q", ErrMalformedIdentity, identity)
	}

	return DatedIdentity{Year: year, Month: month, Day: day, Name: parts[3]}, nil
}

// Date returns the identity's date at midnight UTC.
func (d DatedIdentity) Date() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Naming controls how human-readable output names are built from a dated
// identity. The slug ordering changed between revisions of this tool, so it
// is configuration rather than a constant.
type Naming struct {
	// SlugFormat contains the tokens {name} and {date}. Default "{name}-{date}".
	SlugFormat string
	// DateFormat is a Go time layout applied to the identity's date.
	// Default "20060102".
	DateFormat string
}

// DefaultNaming is the convention used by current blog posts.
var DefaultNaming = Naming{SlugFormat: "{name}-{date}", DateFormat: "20060102"}

// Slug renders the output name for a dated identity, e.g. "cat-20240102".
func (n Naming) Slug(d DatedIdentity) string {
	slugFormat := n.SlugFormat
	if slugFormat == "" {
		slugFormat = DefaultNaming.SlugFormat
	}
	dateFormat := n.DateFormat
	if dateFormat == "" {
		dateFormat = DefaultNaming.DateFormat
	}

	out := strings.ReplaceAll(slugFormat, "{name}", d.Name)
	out = strings.ReplaceAll(out, "{date}", d.Date().Format(dateFormat))
	return out
}
