package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eltwork/eltctl/internal/cache"
	"github.com/eltwork/eltctl/internal/loader"
	"github.com/eltwork/eltctl/internal/utils/logger"
)

var (
	useCache  bool
	cachePath string
)

// errValidationFailed signals a refused build up to Execute, where it maps
// to a non-zero exit code. Returning it instead of exiting in place lets
// deferred cleanup (the cache handle) run first.
var errValidationFailed = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate [project-file]",
	Short: "Validate a project descriptor",
	Long: `Validate a project descriptor and everything its include_paths pull in.

This command checks for structural problems including:
- required top-level keys and their types
- duplicate schedule, job, environment, and plugin names
- an unresolved default_environment
- plugin references in schedules and job task chains
- schedule intervals (named aliases or 5-field cron expressions)

All findings are reported in one pass. Unresolved plugin references are
warnings unless --strict is set.

Examples:
  # Validate the default project file
  eltctl validate

  # Validate a specific file, failing on unresolved references
  eltctl validate meltano.yml --strict

  # Reuse the last report when no file changed
  eltctl validate --cache`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectFile := projectFileArg(args)

		if _, err := os.Stat(projectFile); err != nil {
			return fmt.Errorf("project file not found: %s", projectFile)
		}

		if useCache {
			return validateCached(cmd.Context(), projectFile)
		}

		result, err := loader.Load(cmd.Context(), projectFile, loader.Options{Strict: strict})
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		return printOutcome(result.Report.Format(), result.Refused)
	},
}

// validateCached consults the report cache and only reloads when any
// contributing file changed since the cached entry was stored.
func validateCached(ctx context.Context, projectFile string) error {
	abs, err := filepath.Abs(projectFile)
	if err != nil {
		return err
	}

	store := cache.NewBoltCache(&cache.BoltOptions{Path: cachePath})
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open report cache: %w", err)
	}
	defer store.Close()

	if entry, err := store.Get(ctx, abs); err == nil && !entry.Stale() {
		logger.Debug("using cached report",
			zap.String("load_id", entry.LoadID),
			zap.Time("cached_at", entry.CachedAt))
		return printOutcome(entry.Report.Format(), entry.Refused)
	} else if err != nil && !cache.IsNotFound(err) {
		return err
	}

	result, err := loader.Load(ctx, projectFile, loader.Options{Strict: strict})
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	entry, err := cache.NewEntry(result)
	if err != nil {
		logger.Warn("failed to snapshot cache entry", zap.Error(err))
	} else if err := store.Put(ctx, abs, entry); err != nil {
		logger.Warn("failed to store cache entry", zap.Error(err))
	}

	return printOutcome(result.Report.Format(), result.Refused)
}

func printOutcome(formatted string, refused bool) error {
	fmt.Println(formatted)
	if refused {
		return errValidationFailed
	}
	return nil
}

func init() {
	validateCmd.Flags().BoolVar(&useCache, "cache", false, "reuse the previous report when no input file changed")
	validateCmd.Flags().StringVar(&cachePath, "cache-path", cache.DefaultBoltFilePath, "location of the report cache")
	rootCmd.AddCommand(validateCmd)
}
