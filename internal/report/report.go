package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/schaermu/pbxsync/internal/sync"
)

// Options controls how a result is rendered
type Options struct {
	// Color enables styled output. Callers enable it only for terminals.
	Color bool
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"})
	existStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"})
)

type section struct {
	title  string
	marker string
	items  []string
	style  lipgloss.Style
}

// Render writes a human readable summary of r to w. Empty sections are
// omitted; a result with nothing to report prints a single status line.
func Render(w io.Writer, r *sync.Result, opts Options) error {
	addedTitle := "Added"
	if r.DryRun {
		addedTitle = "Would add"
	}
	sections := []section{
		{title: addedTitle, marker: "+", items: r.Added, style: addedStyle},
		{title: "Already in project", marker: "=", items: r.Existing, style: existStyle},
		{title: "Incomplete", marker: "!", items: r.Incomplete, style: warnStyle},
		{title: "Errors", marker: "x", items: r.Errors, style: errorStyle},
	}

	var b strings.Builder
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		heading := fmt.Sprintf("%s (%d)", s.title, len(s.items))
		if opts.Color {
			heading = headingStyle.Render(heading)
		}
		b.WriteString(heading + "\n")
		for _, item := range s.items {
			line := s.marker + " " + item
			if opts.Color {
				line = s.style.Render(line)
			}
			b.WriteString("  " + line + "\n")
		}
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(status(r, opts))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func status(r *sync.Result, opts Options) string {
	var msg string
	style := addedStyle
	switch {
	case len(r.Errors) > 0:
		msg = fmt.Sprintf("Finished with %d error(s)", len(r.Errors))
		style = errorStyle
	case len(r.Added) == 0:
		msg = "Project is up to date"
	case r.DryRun:
		msg = fmt.Sprintf("Would add %d file(s), dry run left the project unchanged", len(r.Added))
	case r.Changed && r.BackupPath != "":
		msg = fmt.Sprintf("Added %d file(s), backup at %s", len(r.Added), r.BackupPath)
	default:
		msg = fmt.Sprintf("Added %d file(s)", len(r.Added))
	}
	if opts.Color {
		return style.Bold(true).Render(msg)
	}
	return msg
}
