package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/schaermu/pbxsync/internal/source"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "pbxsync.yaml"

// Config represents the complete pbxsync configuration
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Source  SourceConfig  `yaml:"source"`
	Sync    SyncConfig    `yaml:"sync"`
	Watch   WatchConfig   `yaml:"watch"`

	// groupDerived is set when Project.Group was not configured, so it is
	// derived again after the target or source directory changes.
	groupDerived bool
}

// ProjectConfig locates the manifest and the entries new files are added to
type ProjectConfig struct {
	Manifest   string `yaml:"manifest"`
	Group      string `yaml:"group"`
	AnchorFile string `yaml:"anchor_file"`
	Target     string `yaml:"target"`
	BuildPhase string `yaml:"build_phase"`
}

// SourceConfig configures the watched source directory
type SourceConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
	Recursive  bool     `yaml:"recursive"`
	Exclude    []string `yaml:"exclude"`
}

// SyncConfig configures how the manifest is written
type SyncConfig struct {
	Backup       *bool  `yaml:"backup"`
	BackupSuffix string `yaml:"backup_suffix"`
	Strict       bool   `yaml:"strict"`
}

// WatchConfig configures continuous mode
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns a config with every default applied and no paths set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()

	// Relative paths are relative to the config file, not the caller
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	cfg.resolvePaths(base)

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Override replaces the manifest and source directory when non-empty.
// Relative values are resolved against the working directory.
func (c *Config) Override(manifest, sourceDir string) error {
	if manifest != "" {
		abs, err := filepath.Abs(manifest)
		if err != nil {
			return fmt.Errorf("failed to resolve manifest path: %w", err)
		}
		c.Project.Manifest = abs
	}
	if sourceDir != "" {
		abs, err := filepath.Abs(sourceDir)
		if err != nil {
			return fmt.Errorf("failed to resolve source directory: %w", err)
		}
		c.Source.Dir = abs
	}
	c.applyDefaults()
	return nil
}

// expandEnv expands environment variables in all path fields
func (c *Config) expandEnv() {
	c.Project.Manifest = os.ExpandEnv(c.Project.Manifest)
	c.Source.Dir = os.ExpandEnv(c.Source.Dir)
	for i, p := range c.Source.Exclude {
		c.Source.Exclude[i] = os.ExpandEnv(p)
	}
}

func (c *Config) resolvePaths(base string) {
	if c.Project.Manifest != "" && !filepath.IsAbs(c.Project.Manifest) {
		c.Project.Manifest = filepath.Join(base, c.Project.Manifest)
	}
	if c.Source.Dir != "" && !filepath.IsAbs(c.Source.Dir) {
		c.Source.Dir = filepath.Join(base, c.Source.Dir)
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	// An .xcodeproj bundle stands for the manifest inside it
	if strings.HasSuffix(c.Project.Manifest, ".xcodeproj") {
		c.Project.Manifest = filepath.Join(c.Project.Manifest, "project.pbxproj")
	}
	if c.Project.Group == "" || c.groupDerived {
		c.groupDerived = true
		c.Project.Group = c.Project.Target
		if c.Project.Group == "" && c.Source.Dir != "" {
			c.Project.Group = filepath.Base(c.Source.Dir)
		}
	}
	if c.Project.BuildPhase == "" {
		c.Project.BuildPhase = "Sources"
	}
	if len(c.Source.Extensions) == 0 {
		c.Source.Extensions = append([]string(nil), source.DefaultExtensions...)
	}
	for i, ext := range c.Source.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Source.Extensions[i] = "." + ext
		}
	}
	if c.Sync.Backup == nil {
		enabled := true
		c.Sync.Backup = &enabled
	}
	if c.Sync.BackupSuffix == "" {
		c.Sync.BackupSuffix = ".backup"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 2 * time.Second
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Project.Manifest == "" {
		return fmt.Errorf("project.manifest is required")
	}
	if c.Source.Dir == "" {
		return fmt.Errorf("source.dir is required")
	}

	if !filepath.IsAbs(c.Project.Manifest) {
		return fmt.Errorf("project.manifest must be an absolute path: %s", c.Project.Manifest)
	}
	if !filepath.IsAbs(c.Source.Dir) {
		return fmt.Errorf("source.dir must be an absolute path: %s", c.Source.Dir)
	}

	if c.Project.Group == "" {
		return fmt.Errorf("project.group is required when no target is set")
	}

	for _, ext := range c.Source.Extensions {
		if ext == "." || strings.ContainsAny(ext, `/\ `) {
			return fmt.Errorf("invalid source extension: %q", ext)
		}
	}
	if err := source.ValidateExcludes(c.Source.Exclude); err != nil {
		return fmt.Errorf("source.exclude: %w", err)
	}

	if strings.ContainsAny(c.Sync.BackupSuffix, `/\`) {
		return fmt.Errorf("sync.backup_suffix must not contain path separators: %s", c.Sync.BackupSuffix)
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative: %s", c.Watch.Debounce)
	}

	return nil
}

// BackupEnabled reports whether a backup is written before the manifest.
func (c *Config) BackupEnabled() bool {
	return c.Sync.Backup == nil || *c.Sync.Backup
}

// BackupPath returns the path of the pre-change copy of the manifest
func (c *Config) BackupPath() string {
	return c.Project.Manifest + c.Sync.BackupSuffix
}

// SourceOptions returns the discovery options for the source directory
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Extensions: c.Source.Extensions,
		Recursive:  c.Source.Recursive,
		Exclude:    c.Source.Exclude,
	}
}
