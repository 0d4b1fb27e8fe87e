package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/schaermu/pbxsync/internal/config"
	"github.com/schaermu/pbxsync/internal/report"
	"github.com/schaermu/pbxsync/internal/sync"
	"github.com/schaermu/pbxsync/internal/watch"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile     string
	logLevel    string
	logFormat   string
	projectPath string
	sourceDir   string
	dryRun      bool
	jsonOutput  bool

	// stdout receives the summary; logs go to stderr
	stdout io.Writer = os.Stdout
)

// errUnsynced is returned when a pass reported errors or check found drift.
// cobra turns it into exit status 1.
var errUnsynced = errors.New("project is not in sync")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pbxsync",
	Short: "Register new source files in an Xcode project",
	Long: `pbxsync keeps an Xcode project manifest (project.pbxproj) in step with the
source files present on disk.

Every source file that the project does not reference yet is added as a file
reference, a build file, a child of the configured group and a member of the
target's Sources build phase. Files already in the project are left alone.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add unregistered source files to the project",
	Long: `Sync scans the source directory, adds every file that is not yet part of the
project and rewrites the manifest. A backup of the previous manifest is written
next to it unless disabled in the configuration.`,
	RunE: runSync,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync continuously while files are created",
	Long: `Watch performs an initial sync and then listens for new files in the source
directory. Bursts of changes are coalesced into a single sync.`,
	RunE: runWatch,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report unregistered files without changing the project",
	Long: `Check runs a sync without writing anything. It exits with status 1 when a file
would be added, a file is only partially registered, or an error occurred.`,
	RunE: runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pbxsync %s\n", version)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "", "path to the .xcodeproj bundle or its project.pbxproj")
	rootCmd.PersistentFlags().StringVar(&sourceDir, "source", "", "directory containing the source files")

	// Sync command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	syncCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine := sync.NewEngine(cfg, logger, dryRun)
	result, err := engine.Run(ctx)
	if err != nil {
		logger.Error("sync failed", "error", err)
	}
	if result == nil {
		return err
	}
	if perr := printResult(result); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}
	if result.ExitCode() != 0 {
		return errUnsynced
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := sync.NewEngine(cfg, logger, true).Run(ctx)
	if err != nil {
		logger.Error("check failed", "error", err)
	}
	if result == nil {
		return err
	}
	if perr := printResult(result); perr != nil {
		return perr
	}
	if err != nil {
		return err
	}
	if !inSync(result) {
		return errUnsynced
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	w := watch.NewWatcher(cfg, logger, func(r *sync.Result) {
		if len(r.Added) == 0 && len(r.Errors) == 0 && len(r.Incomplete) == 0 {
			return
		}
		if err := printResult(r); err != nil {
			logger.Warn("failed to print result", "error", err)
		}
	})
	return w.Start(ctx)
}

// inSync reports whether a dry pass found nothing to add or fix
func inSync(r *sync.Result) bool {
	return len(r.Added) == 0 && len(r.Incomplete) == 0 && len(r.Errors) == 0
}

func printResult(r *sync.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return report.Render(stdout, r, report.Options{Color: colorEnabled()})
}

func colorEnabled() bool {
	f, ok := stdout.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// loadConfig reads --config, falls back to ./pbxsync.yaml and finally to
// defaults. --project and --source always take precedence.
func loadConfig(logger *slog.Logger) (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			configPath = config.DefaultFile
		}
	}

	var cfg *config.Config
	if configPath != "" {
		logger.Info("loading configuration", "path", configPath)

		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		logger.Debug("no config file, using defaults and flags")
		cfg = config.Default()
	}

	if err := cfg.Override(projectPath, sourceDir); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("configuration loaded",
		"manifest", cfg.Project.Manifest,
		"source", cfg.Source.Dir,
		"group", cfg.Project.Group,
		"target", cfg.Project.Target)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
