package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/schaermu/pbxsync/internal/config"
	"github.com/schaermu/pbxsync/internal/source"
	pbxsync "github.com/schaermu/pbxsync/internal/sync"
)

// Runner performs one sync pass
type Runner func(ctx context.Context) (*pbxsync.Result, error)

// Watcher re-syncs the manifest whenever source files appear
type Watcher struct {
	cfg         *config.Config
	logger      *slog.Logger
	run         Runner
	report      func(*pbxsync.Result)
	syncMu      sync.Mutex // guards syncRunning and syncPending
	syncRunning bool       // whether a sync is currently in progress
	syncPending bool       // whether another sync is needed after the current one
	debounce    *debouncer
}

// debouncer implements debouncing for filesystem events
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	delay    time.Duration
	callback func()
}

// NewWatcher creates a watcher for the configured source directory. report,
// if non-nil, receives the result of every pass.
func NewWatcher(cfg *config.Config, logger *slog.Logger, report func(*pbxsync.Result)) *Watcher {
	return &Watcher{
		cfg:    cfg,
		logger: logger,
		report: report,
		run: func(ctx context.Context) (*pbxsync.Result, error) {
			return pbxsync.NewEngine(cfg, logger, false).Run(ctx)
		},
		debounce: &debouncer{delay: cfg.Watch.Debounce},
	}
}

// Start performs an initial sync and then watches the source directory until
// ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("performing initial sync before watching")
	w.performSync(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	if err := w.addDirs(fw, w.cfg.Source.Dir); err != nil {
		return fmt.Errorf("failed to watch source directory: %w", err)
	}
	w.logger.Info("watching source directory", "dir", w.cfg.Source.Dir, "recursive", w.cfg.Source.Recursive)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			w.debounce.stop()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// handleEvent triggers a debounced sync for new source files and starts
// watching new subdirectories in recursive mode.
func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) && w.cfg.Source.Recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirs(fw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
			// Files may have landed before the watch was added
			w.trigger(ctx, event.Name)
			return
		}
	}

	if !w.isRelevant(event.Name) {
		return
	}
	w.trigger(ctx, event.Name)
}

func (w *Watcher) trigger(ctx context.Context, path string) {
	w.logger.Debug("change detected", "path", path)
	w.debounce.trigger(func() {
		w.performSync(ctx)
	})
}

// isRelevant reports whether path is a tracked source file
func (w *Watcher) isRelevant(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return source.HasExtension(path, w.cfg.Source.Extensions)
}

// addDirs watches dir and, in recursive mode, every visible subdirectory
func (w *Watcher) addDirs(fw *fsnotify.Watcher, dir string) error {
	if !w.cfg.Source.Recursive {
		return fw.Add(dir)
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && (strings.HasPrefix(info.Name(), ".") || source.IsBundle(info.Name())) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// performSync executes the sync operation with single-flight semantics.
// If a sync is already in progress, at most one additional run is queued;
// further concurrent requests are dropped.
func (w *Watcher) performSync(ctx context.Context) {
	w.syncMu.Lock()
	if w.syncRunning {
		w.syncPending = true
		w.syncMu.Unlock()
		w.logger.Info("sync already in progress, queuing pending re-run")
		return
	}
	w.syncRunning = true
	w.syncMu.Unlock()

	for {
		w.logger.Info("performing sync operation")

		result, err := w.run(ctx)
		if err != nil {
			w.logger.Error("sync failed", "error", err)
		} else {
			w.logger.Info("sync completed", "added", len(result.Added), "errors", len(result.Errors))
		}
		if result != nil && w.report != nil {
			w.report(result)
		}

		w.syncMu.Lock()
		if !w.syncPending {
			w.syncRunning = false
			w.syncMu.Unlock()
			break
		}
		w.syncPending = false
		w.syncMu.Unlock()

		w.logger.Info("re-running sync due to pending request")
	}
}

// trigger schedules the callback to run after the debounce delay
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// stop cancels a scheduled callback
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.callback = nil
}
