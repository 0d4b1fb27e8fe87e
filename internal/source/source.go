package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions are the source extensions tracked when none are configured.
var DefaultExtensions = []string{".swift"}

// bundleExtensions are directories Xcode treats as opaque files.
var bundleExtensions = []string{
	".xcodeproj",
	".xcworkspace",
	".xcassets",
	".xcdatamodeld",
	".bundle",
	".framework",
	".lproj",
}

// Options controls which files Discover returns.
type Options struct {
	Extensions []string
	Recursive  bool
	// Exclude holds doublestar patterns matched against slash-separated
	// paths relative to the source directory.
	Exclude []string
}

// HasExtension returns true if the file has one of the given extensions.
func HasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, valid := range exts {
		if !strings.HasPrefix(valid, ".") {
			valid = "." + valid
		}
		if ext == valid {
			return true
		}
	}
	return false
}

// IsBundle returns true for directories that should not be descended into.
func IsBundle(name string) bool {
	ext := filepath.Ext(name)
	for _, b := range bundleExtensions {
		if ext == b {
			return true
		}
	}
	return false
}

// ValidateExcludes checks that every exclude pattern is well formed.
func ValidateExcludes(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// Discover finds all source files in dir. Hidden files and directories and
// bundle directories are skipped. The result is ordered by base name, then
// by path.
func Discover(dir string, opts Options) ([]string, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if !opts.Recursive || IsBundle(info.Name()) || excluded(rel, opts.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}

		if HasExtension(path, exts) && !excluded(rel, opts.Exclude) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		bi, bj := filepath.Base(files[i]), filepath.Base(files[j])
		if bi != bj {
			return bi < bj
		}
		return files[i] < files[j]
	})

	return files, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
