//go:build integration

package tier1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/pbxsync/internal/testutil"
)

const defaultTimeout = 2 * time.Minute

// Harness builds the pbxsync binary and runs it against a scratch project
type Harness struct {
	t        *testing.T
	binary   string
	root     string
	keepTemp bool
}

// NewHarness creates a new test harness with an empty project directory
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	return &Harness{
		t:        t,
		root:     t.TempDir(),
		keepTemp: os.Getenv("INTEGRATION_KEEP_PROJECT") == "1",
	}
}

// BuildBinary compiles cmd/pbxsync into the harness directory
func (h *Harness) BuildBinary(ctx context.Context) error {
	h.t.Helper()

	projectRoot, err := testutil.FindProjectRoot()
	if err != nil {
		return fmt.Errorf("get project root: %w", err)
	}

	h.binary = filepath.Join(h.t.TempDir(), "pbxsync")
	h.t.Logf("Building %s", h.binary)

	cmd := exec.CommandContext(ctx, "go", "build", "-o", h.binary, "./cmd/pbxsync")
	cmd.Dir = projectRoot
	cmd.Stdout = &testWriter{t: h.t, prefix: "[build] "}
	cmd.Stderr = &testWriter{t: h.t, prefix: "[build] "}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	return nil
}

// Path returns an absolute path inside the project directory
func (h *Harness) Path(rel string) string {
	return filepath.Join(h.root, rel)
}

// Cleanup copies the project aside when the test failed and keeping was requested
func (h *Harness) Cleanup() {
	h.t.Helper()
	if !h.keepTemp || !h.t.Failed() {
		return
	}

	dst, err := os.MkdirTemp("", "pbxsync-failed-*")
	if err != nil {
		h.t.Logf("Warning: failed to keep project: %v", err)
		return
	}
	if err := os.CopyFS(dst, os.DirFS(h.root)); err != nil {
		h.t.Logf("Warning: failed to keep project: %v", err)
		return
	}
	h.t.Logf("Test failed and INTEGRATION_KEEP_PROJECT=1, project kept at %s", dst)
}

// Exec runs the binary inside the project directory
func (h *Harness) Exec(ctx context.Context, args ...string) (string, string, int, error) {
	h.t.Helper()
	if h.binary == "" {
		return "", "", 0, fmt.Errorf("binary not built")
	}

	cmd := exec.CommandContext(ctx, h.binary, args...)
	cmd.Dir = h.root
	cmd.Env = append(os.Environ(), "NO_COLOR=1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return "", "", 0, fmt.Errorf("exec failed: %w", err)
		}
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

// MustExec runs the binary and fails the test if it returns non-zero
func (h *Harness) MustExec(ctx context.Context, args ...string) (string, string) {
	h.t.Helper()
	stdout, stderr, exitCode, err := h.Exec(ctx, args...)
	if err != nil {
		h.t.Fatalf("exec failed: %v", err)
	}
	if exitCode != 0 {
		h.t.Fatalf("command failed with exit code %d\nstdout: %s\nstderr: %s\nargs: %v",
			exitCode, stdout, stderr, args)
	}
	return stdout, stderr
}

// WriteFile writes a file relative to the project directory
func (h *Harness) WriteFile(rel, content string) {
	h.t.Helper()
	path := h.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatalf("write file: %v", err)
	}
}

// ReadFile reads a file relative to the project directory
func (h *Harness) ReadFile(rel string) string {
	h.t.Helper()
	data, err := os.ReadFile(h.Path(rel))
	if err != nil {
		h.t.Fatalf("read file: %v", err)
	}
	return string(data)
}

// FileExists checks if a file exists relative to the project directory
func (h *Harness) FileExists(rel string) bool {
	h.t.Helper()
	info, err := os.Stat(h.Path(rel))
	return err == nil && !info.IsDir()
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*testWriter)(nil)
