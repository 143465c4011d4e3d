package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration for xli. Every component receives the
// part it needs at construction; nothing reads globals.
type Config struct {
	// UploadRoot is the directory holding dated local asset files.
	UploadRoot string `toml:"upload_root"`
	// PostsRoot is the blog post corpus scanned for publish dates.
	PostsRoot string `toml:"posts_root"`
	// DocsRoot receives generated documentation artifacts.
	DocsRoot string `toml:"docs_root"`
	// BackupRoot receives dated archive snapshots.
	BackupRoot string `toml:"backup_root"`
	// ArchiveRoot holds run manifests and other ledger side artifacts.
	ArchiveRoot string `toml:"archive_root"`
	// ArchivePath is the ledger file itself.
	ArchivePath string `toml:"archive_path"`
	// TemplatePath is the documentation template file.
	TemplatePath string `toml:"template_path"`
	// LogDir receives the structured log file.
	LogDir string `toml:"log_dir"`

	Gateway   GatewayConfig   `toml:"gateway"`
	Archive   ArchiveConfig   `toml:"archive"`
	Database  DatabaseConfig  `toml:"database"`
	Naming    NamingConfig    `toml:"naming"`
	Upload    UploadConfig    `toml:"upload"`
	Reconcile ReconcileConfig `toml:"reconcile"`
}

// GatewayConfig configures the remote asset gateway backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type GatewayConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket  string `toml:"s3_bucket,omitempty"`
	S3Prefix  string `toml:"s3_prefix,omitempty"`
	S3Region  string `toml:"s3_region,omitempty"`
	S3BaseURL string `toml:"s3_base_url,omitempty"` // public URL prefix, e.g. a CDN in front of the bucket
	// Static credentials. When empty, the ambient AWS configuration
	// (environment, shared config files) is used instead.
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSGatewayRoot string `toml:"fs_gateway_root,omitempty"`
}

// ArchiveConfig configures the ledger store backend.
type ArchiveConfig struct {
	Type string `toml:"type"` // "file" or "memory"
}

// DatabaseConfig configures the operation-history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NamingConfig controls how output names are built from dated identities.
// The separator and ordering changed between revisions of this tool, so
// they live in config rather than code.
type NamingConfig struct {
	SlugFormat string `toml:"slug_format"` // tokens {name} and {date}; default "{name}-{date}"
	DateFormat string `toml:"date_format"` // Go time layout; default "20060102"
}

// UploadConfig tunes the upload batch.
type UploadConfig struct {
	Concurrency  int      `toml:"concurrency"`   // parallel upload workers; default 4
	Ignore       []string `toml:"ignore"`        // sentinel placeholder patterns; default [".gitkeep"]
	SamplePrefix string   `toml:"sample_prefix"` // reserved remote namespace excluded from listings
	ListMax      int      `toml:"list_max"`      // remote listing cap; hard limit 500
}

// ReconcileConfig tunes destructive reconciliation.
type ReconcileConfig struct {
	// DeleteInterval paces destroy calls between items, e.g. "1s".
	DeleteInterval Duration `toml:"delete_interval"`
}

// Duration wraps time.Duration so config values read as strings like "750ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML encoding.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig creates a Config with the conventional layout under baseDir.
func NewConfig(name, baseDir string) *Config {
	return &Config{
		UploadRoot:   filepath.Join(baseDir, "upload"),
		PostsRoot:    filepath.Join(baseDir, "posts"),
		DocsRoot:     filepath.Join(baseDir, "docs"),
		BackupRoot:   filepath.Join(baseDir, "backup"),
		ArchiveRoot:  filepath.Join(baseDir, "archive"),
		ArchivePath:  filepath.Join(baseDir, "archive", "archive.json"),
		TemplatePath: filepath.Join(baseDir, "templates", "doc.md"),
		LogDir:       filepath.Join(baseDir, "log"),
		Gateway: GatewayConfig{
			Type: "filesystem",
			Name: name,

			FSGatewayRoot: filepath.Join(baseDir, "gateway"),
		},
		Archive:  ArchiveConfig{Type: "file"},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "data")},
		Naming:   NamingConfig{SlugFormat: "{name}-{date}", DateFormat: "20060102"},
		Upload: UploadConfig{
			Concurrency:  4,
			Ignore:       []string{".gitkeep"},
			SamplePrefix: "samples/",
			ListMax:      500,
		},
		Reconcile: ReconcileConfig{DeleteInterval: Duration{time.Second}},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
