//go:build integration

package tier1

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/schaermu/pbxsync/internal/testutil"
)

const (
	// Paths relative to the scratch project
	testManifest = "Demo.xcodeproj/project.pbxproj"
	testBackup   = "Demo.xcodeproj/project.pbxproj.backup"
	testSrcDir   = "Demo"
	testConfig   = "pbxsync.yaml"
)

func TestTier1Sync(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	h := NewHarness(t)

	if err := h.BuildBinary(ctx); err != nil {
		t.Fatalf("build binary: %v", err)
	}
	defer h.Cleanup()

	setupProject(t, h)

	// Run all scenarios as subtests
	t.Run("A_CheckReportsDrift", func(t *testing.T) {
		testCheckReportsDrift(t, h, ctx)
	})

	t.Run("B_DryRunMode", func(t *testing.T) {
		testDryRunMode(t, h, ctx)
	})

	t.Run("C_InitialSync", func(t *testing.T) {
		testInitialSync(t, h, ctx)
	})

	t.Run("D_NoOpSync", func(t *testing.T) {
		testNoOpSync(t, h, ctx)
	})

	t.Run("E_FlagOverrides", func(t *testing.T) {
		testFlagOverrides(t, h, ctx)
	})

	t.Run("F_MissingManifest", func(t *testing.T) {
		testMissingManifest(t, h, ctx)
	})
}

// setupProject writes the Main/Helper/Utils project and a config file
func setupProject(t *testing.T, h *Harness) {
	t.Helper()

	h.WriteFile(testManifest, testutil.Manifest("Main.swift"))
	h.WriteFile(testSrcDir+"/Main.swift", "// main\n")
	h.WriteFile(testSrcDir+"/Helper.swift", "// helper\n")
	h.WriteFile(testSrcDir+"/Utils.swift", "// utils\n")
	h.WriteFile(testConfig, `project:
  manifest: `+testManifest+`
  anchor_file: Main.swift
  target: Demo
source:
  dir: `+testSrcDir+`
`)
}

func runJSON(t *testing.T, h *Harness, ctx context.Context, args ...string) (result struct {
	Added    []string `json:"added"`
	Existing []string `json:"existing"`
	Errors   []string `json:"errors"`
	Changed  bool     `json:"changed"`
}, exitCode int) {
	t.Helper()
	stdout, stderr, code, err := h.Exec(ctx, append(args, "--json")...)
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}
	return result, code
}

func testCheckReportsDrift(t *testing.T, h *Harness, ctx context.Context) {
	result, code := runJSON(t, h, ctx, "check")
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if strings.Join(result.Added, ",") != "Helper.swift,Utils.swift" {
		t.Errorf("unexpected added list %v", result.Added)
	}
	if h.FileExists(testBackup) {
		t.Error("check must not write a backup")
	}
}

func testDryRunMode(t *testing.T, h *Harness, ctx context.Context) {
	before := h.ReadFile(testManifest)

	stdout, _ := h.MustExec(ctx, "sync", "--dry-run")
	if !strings.Contains(stdout, "Would add (2)") || !strings.Contains(stdout, "+ Helper.swift") {
		t.Errorf("expected summary to list Helper.swift as pending, got:\n%s", stdout)
	}

	if h.ReadFile(testManifest) != before {
		t.Error("dry run modified the manifest")
	}
	if h.FileExists(testBackup) {
		t.Error("dry run wrote a backup")
	}
}

func testInitialSync(t *testing.T, h *Harness, ctx context.Context) {
	before := h.ReadFile(testManifest)

	result, code := runJSON(t, h, ctx, "sync")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (errors: %v)", code, result.Errors)
	}
	if strings.Join(result.Existing, ",") != "Main.swift" {
		t.Errorf("unexpected existing list %v", result.Existing)
	}
	if strings.Join(result.Added, ",") != "Helper.swift,Utils.swift" {
		t.Errorf("unexpected added list %v", result.Added)
	}

	after := h.ReadFile(testManifest)
	if got := strings.Count(after, "\n") - strings.Count(before, "\n"); got != 8 {
		t.Errorf("expected 8 new lines, got %d", got)
	}
	for _, name := range []string{"Helper.swift", "Utils.swift"} {
		if !strings.Contains(after, "path = "+name+";") {
			t.Errorf("manifest is missing a file reference for %s", name)
		}
		if !strings.Contains(after, name+" in Sources */,") {
			t.Errorf("manifest is missing a build phase entry for %s", name)
		}
	}

	if h.ReadFile(testBackup) != before {
		t.Error("backup does not match the original manifest")
	}
}

func testNoOpSync(t *testing.T, h *Harness, ctx context.Context) {
	before := h.ReadFile(testManifest)

	result, code := runJSON(t, h, ctx, "sync")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if len(result.Added) != 0 || result.Changed {
		t.Errorf("expected no-op, got added=%v changed=%v", result.Added, result.Changed)
	}
	if h.ReadFile(testManifest) != before {
		t.Error("no-op sync modified the manifest")
	}

	if _, _, code, err := h.Exec(ctx, "check"); err != nil || code != 0 {
		t.Errorf("expected clean check, got exit code %d (err %v)", code, err)
	}
}

func testFlagOverrides(t *testing.T, h *Harness, ctx context.Context) {
	h.WriteFile(testSrcDir+"/Extra.swift", "// extra\n")

	if _, _, code, err := h.Exec(ctx, "sync", "--config", h.Path("missing.yaml")); err != nil || code != 1 {
		t.Errorf("expected failure for an explicit missing config, got exit code %d (err %v)", code, err)
	}

	stdout, _ := h.MustExec(ctx, "sync",
		"--project", h.Path("Demo.xcodeproj"),
		"--source", h.Path(testSrcDir))
	if !strings.Contains(stdout, "+ Extra.swift") {
		t.Errorf("expected Extra.swift to be added, got:\n%s", stdout)
	}
}

func testMissingManifest(t *testing.T, h *Harness, ctx context.Context) {
	stdout, stderr, code, err := h.Exec(ctx, "sync",
		"--project", h.Path("Nope.xcodeproj"),
		"--source", h.Path(testSrcDir))
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stdout+stderr, "project file not found") {
		t.Errorf("expected a descriptive error, got stdout=%s stderr=%s", stdout, stderr)
	}
}
