package sync

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks failures that abort a pass before any work is done.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a missing manifest or source directory.
type ConfigurationError struct {
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// Result summarizes one sync pass
type Result struct {
	Added      []string `json:"added"`
	Existing   []string `json:"existing"`
	Incomplete []string `json:"incomplete,omitempty"` // registered, but not in all four places
	Errors     []string `json:"errors"`
	Changed    bool     `json:"changed"`
	DryRun     bool     `json:"dry_run,omitempty"` // changes were computed but not written
	BackupPath string   `json:"backup_path,omitempty"`
}

// ExitCode returns the process exit status for the pass.
func (r *Result) ExitCode() int {
	if len(r.Errors) > 0 {
		return 1
	}
	return 0
}
