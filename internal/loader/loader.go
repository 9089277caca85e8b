package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eltwork/eltctl/internal/document"
	"github.com/eltwork/eltctl/internal/include"
	"github.com/eltwork/eltctl/internal/model"
	"github.com/eltwork/eltctl/internal/schema"
	"github.com/eltwork/eltctl/internal/utils/logger"
)

// Options configures one load
type Options struct {
	// Strict turns unresolved plugin references into errors
	Strict bool
}

// Result is the terminal outcome of a successful pipeline run. When the
// validation report carries errors the build is refused: Refused is set
// and Project stays nil, but the report is still complete.
type Result struct {
	LoadID   string
	Path     string   // absolute path of the root document
	Dir      string   // directory the includes were resolved against
	Includes []string // matched include files, relative to Dir, in merge order
	Report   *schema.Report
	Project  *model.Project
	Refused  bool
}

// Files returns every file that contributed to the result: the root
// document plus each resolved include, as absolute paths.
func (r *Result) Files() []string {
	out := make([]string, 0, len(r.Includes)+1)
	out = append(out, r.Path)
	for _, inc := range r.Includes {
		out = append(out, filepath.Join(r.Dir, filepath.FromSlash(inc)))
	}
	return out
}

// CancelledError marks a load stopped by its context; it is distinct from
// any parse, include, or validation failure.
type CancelledError struct {
	Stage string
	cause error
}

// Error implements the error interface
func (e *CancelledError) Error() string {
	return fmt.Sprintf("load cancelled during %s: %v", e.Stage, e.cause)
}

// Unwrap returns the context error that stopped the load
func (e *CancelledError) Unwrap() error { return e.cause }

// IsCancelled reports whether err is a cooperative cancellation
func IsCancelled(err error) bool {
	var c *CancelledError
	return errors.As(err, &c)
}

// Load runs the full pipeline against the root document at path:
// parse, resolve includes, validate, build. Every call produces a fresh
// tree and model; cancellation between stages yields a CancelledError and
// never a partially built model.
func Load(ctx context.Context, path string, opts Options) (*Result, error) {
	loadID := uuid.NewString()
	log := logger.With(zap.String("load_id", loadID), zap.String("path", path))

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Stage: "parse", cause: err}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	tree, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	if !tree.IsMapping() {
		return nil, schema.ErrNotMapping
	}

	resolver := include.NewResolver(abs)
	merged, includes, err := resolver.Resolve(ctx, tree)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &CancelledError{Stage: "include resolution", cause: err}
		}
		return nil, err
	}
	if log != nil {
		log.Debug("includes resolved", zap.Int("count", len(includes)))
	}

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Stage: "validation", cause: err}
	}

	report, err := schema.NewValidator(merged, opts.Strict).Validate()
	if err != nil {
		return nil, err
	}

	result := &Result{
		LoadID:   loadID,
		Path:     abs,
		Dir:      filepath.Dir(abs),
		Includes: includes,
		Report:   report,
	}

	project, err := model.Build(merged, report)
	if errors.Is(err, model.ErrBuildRefused) {
		result.Refused = true
		if log != nil {
			log.Warn("build refused", zap.Int("errors", len(report.Errors())))
		}
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Project = project
	if log != nil {
		log.Debug("project loaded",
			zap.Int("findings", len(report.Findings)),
			zap.Int("includes", len(includes)))
	}
	return result, nil
}
