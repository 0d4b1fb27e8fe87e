package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/schaermu/pbxsync/internal/config"
	pbxsync "github.com/schaermu/pbxsync/internal/sync"
	"github.com/schaermu/pbxsync/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestConfig(t *testing.T) *config.Config {
	t.Helper()
	manifest, sourceDir := testutil.WriteProject(t, testutil.Manifest("Main.swift"), "Main.swift")

	cfg := &config.Config{
		Project: config.ProjectConfig{
			Manifest:   manifest,
			Group:      testutil.ProjectName,
			AnchorFile: "Main.swift",
			Target:     testutil.ProjectName,
		},
		Source: config.SourceConfig{Dir: sourceDir},
		Watch:  config.WatchConfig{Debounce: 50 * time.Millisecond},
	}
	if err := cfg.Override("", ""); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestStart_SyncsNewFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := setupTestConfig(t)
	results := make(chan *pbxsync.Result, 16)
	w := NewWatcher(cfg, testLogger(), func(r *pbxsync.Result) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	select {
	case r := <-results:
		if len(r.Added) != 0 || len(r.Existing) != 1 {
			t.Fatalf("initial sync: added=%v existing=%v", r.Added, r.Existing)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("initial sync did not run")
	}

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(cfg.Source.Dir, "Helper.swift"), []byte("// helper\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for added := false; !added; {
		select {
		case r := <-results:
			added = len(r.Added) == 1 && r.Added[0] == "Helper.swift"
		case <-deadline:
			t.Fatal("new file was not synced")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	data, err := os.ReadFile(cfg.Project.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "path = Helper.swift;") {
		t.Error("manifest does not reference Helper.swift")
	}
}

func TestStart_MissingSourceDir(t *testing.T) {
	cfg := setupTestConfig(t)
	cfg.Source.Dir = filepath.Join(cfg.Source.Dir, "missing")

	w := NewWatcher(cfg, testLogger(), nil)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing source directory")
	}
}

func TestIsRelevant(t *testing.T) {
	cfg := setupTestConfig(t)
	w := NewWatcher(cfg, testLogger(), nil)

	tests := map[string]bool{
		"/src/Helper.swift":      true,
		"/src/.Helper.swift.swp": false,
		"/src/.Hidden.swift":     false,
		"/src/Info.plist":        false,
		"/src/Helper.swift.orig": false,
	}
	for path, want := range tests {
		if got := w.isRelevant(path); got != want {
			t.Errorf("isRelevant(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDebouncer(t *testing.T) {
	var callCount int
	var mu sync.Mutex
	d := &debouncer{delay: 50 * time.Millisecond}

	// Trigger multiple times rapidly
	for i := 0; i < 5; i++ {
		d.trigger(func() {
			mu.Lock()
			callCount++
			mu.Unlock()
		})
		time.Sleep(10 * time.Millisecond)
	}

	// Wait for debounce to complete
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	count := callCount
	mu.Unlock()

	if count != 1 {
		t.Errorf("expected callback to be called once, got %d", count)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	called := make(chan struct{}, 1)
	d := &debouncer{delay: 20 * time.Millisecond}
	d.trigger(func() { called <- struct{}{} })
	d.stop()

	select {
	case <-called:
		t.Error("callback ran after stop")
	case <-time.After(80 * time.Millisecond):
	}
}

// TestPerformSync_SingleFlight verifies that concurrent performSync calls use
// single-flight semantics: at most one sync runs at a time and at most one
// additional run is queued.
func TestPerformSync_SingleFlight(t *testing.T) {
	cfg := setupTestConfig(t)

	started := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	var runsMu sync.Mutex
	runs := 0

	w := NewWatcher(cfg, testLogger(), nil)
	w.run = func(ctx context.Context) (*pbxsync.Result, error) {
		once.Do(func() { close(started) })
		<-proceed
		runsMu.Lock()
		runs++
		runsMu.Unlock()
		return &pbxsync.Result{}, nil
	}

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.performSync(ctx)
	}()

	<-started

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.performSync(ctx)
		}()
	}
	wg.Wait()

	w.syncMu.Lock()
	pending := w.syncPending
	w.syncMu.Unlock()
	if !pending {
		t.Error("expected syncPending to be true after concurrent performSync calls")
	}

	close(proceed)
	<-done

	w.syncMu.Lock()
	stillRunning := w.syncRunning
	stillPending := w.syncPending
	w.syncMu.Unlock()

	if stillRunning {
		t.Error("expected syncRunning to be false after all syncs completed")
	}
	if stillPending {
		t.Error("expected syncPending to be false after pending re-run was serviced")
	}

	runsMu.Lock()
	defer runsMu.Unlock()
	if runs != 2 {
		t.Errorf("expected 2 sync runs (original + one pending), got %d", runs)
	}
}
