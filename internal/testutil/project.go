package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteProject lays out <tmp>/Demo.xcodeproj/project.pbxproj with the given
// manifest content and creates each file under <tmp>/Demo. Files may contain
// subdirectories. It returns the manifest path and the source directory.
func WriteProject(t testing.TB, manifest string, files ...string) (manifestPath, sourceDir string) {
	t.Helper()
	root := t.TempDir()

	manifestPath = filepath.Join(root, ProjectName+".xcodeproj", "project.pbxproj")
	sourceDir = filepath.Join(root, ProjectName)

	for _, dir := range []string{filepath.Dir(manifestPath), sourceDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	for _, f := range files {
		path := filepath.Join(sourceDir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte("// "+f+"\n"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}

	return manifestPath, sourceDir
}
