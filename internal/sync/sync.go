package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schaermu/pbxsync/internal/config"
	"github.com/schaermu/pbxsync/internal/pbxproj"
	"github.com/schaermu/pbxsync/internal/source"
)

// Registrar adds one file to a manifest buffer
type Registrar interface {
	Register(buf, filename string) (string, pbxproj.Registration, error)
}

// Engine orchestrates the sync process
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
	dryRun bool

	// newRegistrar is called once per pass so identifiers are tracked per pass.
	newRegistrar func() Registrar
}

// NewEngine creates a new sync engine
func NewEngine(cfg *config.Config, logger *slog.Logger, dryRun bool) *Engine {
	opts := pbxproj.Options{
		Group:      cfg.Project.Group,
		AnchorFile: cfg.Project.AnchorFile,
		Target:     cfg.Project.Target,
		Phase:      cfg.Project.BuildPhase,
		Strict:     cfg.Sync.Strict,
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		dryRun: dryRun,
		newRegistrar: func() Registrar {
			return pbxproj.NewRegistrar(opts, pbxproj.NewGenerator())
		},
	}
}

// Run executes one sync pass. The returned error is non-nil only when the
// pass could not run or could not write its result; per-file failures are
// collected in Result.Errors.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Added:    make([]string, 0),
		Existing: make([]string, 0),
		Errors:   make([]string, 0),
		DryRun:   e.dryRun,
	}

	e.logger.Info("starting sync",
		"manifest", e.cfg.Project.Manifest,
		"source", e.cfg.Source.Dir,
		"dry_run", e.dryRun)

	if err := e.checkPaths(); err != nil {
		return fail(result, err)
	}

	data, err := os.ReadFile(e.cfg.Project.Manifest)
	if err != nil {
		return fail(result, fmt.Errorf("failed to read project file: %w", err))
	}
	original := string(data)

	candidates, err := source.Discover(e.cfg.Source.Dir, e.cfg.SourceOptions())
	if err != nil {
		return fail(result, fmt.Errorf("failed to discover source files: %w", err))
	}
	e.logger.Info("discovered source files", "count", len(candidates))

	content, err := e.register(ctx, original, candidates, result)
	if err != nil {
		return result, err
	}

	e.logger.Info("sync plan",
		"add", len(result.Added),
		"existing", len(result.Existing),
		"errors", len(result.Errors))

	if content == original {
		e.logger.Info("project is already in sync, no changes needed")
		return result, nil
	}
	result.Changed = true

	if e.dryRun {
		for _, name := range result.Added {
			e.logger.Info("[dry-run] would add", "file", name)
		}
		e.logger.Info("dry-run complete, no changes applied")
		return result, nil
	}

	if err := e.write(original, content, result); err != nil {
		return fail(result, err)
	}

	e.logger.Info("sync completed", "added", len(result.Added))
	return result, nil
}

// register adds every unregistered candidate to buf. A failing file leaves
// buf as it was before that file and does not stop the pass.
func (e *Engine) register(ctx context.Context, buf string, candidates []string, result *Result) (string, error) {
	registered := pbxproj.Registered(buf, e.cfg.Source.Extensions)
	added := make(map[string]struct{})
	registrar := e.newRegistrar()

	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("sync interrupted: %w", err)
		}

		name := filepath.Base(path)
		if _, ok := added[name]; ok {
			e.logger.Info("file name registered earlier in this pass, skipping", "file", name, "path", path)
			continue
		}
		if _, ok := registered[name]; ok {
			result.Existing = append(result.Existing, name)
			if p := pbxproj.Inspect(buf, name); !p.Complete() {
				e.logger.Warn("file is only partially registered", "file", name, "missing", p.Missing())
				result.Incomplete = append(result.Incomplete, name)
			}
			continue
		}

		next, reg, err := registrar.Register(buf, name)
		if err != nil {
			e.logger.Error("failed to add file", "file", name, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("failed to add %s: %v", name, err))
			continue
		}
		for _, step := range reg.Skipped {
			e.logger.Warn("skipped registration step", "file", name, "step", step)
		}

		buf = next
		added[name] = struct{}{}
		result.Added = append(result.Added, name)
		e.logger.Info("added file", "file", name, "ref_id", reg.RefID, "build_id", reg.BuildID)
	}

	return buf, nil
}

// checkPaths fails fast when the manifest or the source directory is missing
func (e *Engine) checkPaths() error {
	info, err := os.Stat(e.cfg.Project.Manifest)
	if err != nil {
		return &ConfigurationError{Path: e.cfg.Project.Manifest, Reason: "project file not found"}
	}
	if info.IsDir() {
		return &ConfigurationError{Path: e.cfg.Project.Manifest, Reason: "project file is a directory"}
	}

	info, err = os.Stat(e.cfg.Source.Dir)
	if err != nil {
		return &ConfigurationError{Path: e.cfg.Source.Dir, Reason: "source directory not found"}
	}
	if !info.IsDir() {
		return &ConfigurationError{Path: e.cfg.Source.Dir, Reason: "source path is not a directory"}
	}
	return nil
}

// write stores the backup (if enabled) and then the new manifest
func (e *Engine) write(original, content string, result *Result) error {
	info, err := os.Stat(e.cfg.Project.Manifest)
	if err != nil {
		return fmt.Errorf("failed to stat project file: %w", err)
	}

	if e.cfg.BackupEnabled() {
		backup := e.cfg.BackupPath()
		if err := writeFileAtomic(backup, []byte(original), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write backup: %w", err)
		}
		result.BackupPath = backup
		e.logger.Info("backup created", "path", backup)
	}

	if err := writeFileAtomic(e.cfg.Project.Manifest, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	e.logger.Info("project updated", "path", e.cfg.Project.Manifest)
	return nil
}

func fail(result *Result, err error) (*Result, error) {
	result.Errors = append(result.Errors, err.Error())
	return result, err
}

// writeFileAtomic replaces dst through a temp file and rename
func writeFileAtomic(dst string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".pbxsync-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dst)
}
