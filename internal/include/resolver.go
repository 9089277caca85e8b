package include

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eltwork/eltctl/internal/document"
	"github.com/eltwork/eltctl/internal/utils/logger"
)

// IncludeError reports a bad include file or glob pattern. The Path is
// relative to the base document's directory.
type IncludeError struct {
	Path  string
	Cause error
}

// Error implements the error interface
func (e *IncludeError) Error() string {
	return fmt.Sprintf("include %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause
func (e *IncludeError) Unwrap() error { return e.Cause }

// readConcurrency bounds parallel include-file reads.
const readConcurrency = 8

// Resolver expands include_paths globs against the directory holding the
// base document and merges the matched documents into the base tree.
type Resolver struct {
	fsys fs.FS
	// root is the base document's own file name within fsys; matches
	// against it are skipped so a broad glob cannot merge the document
	// into itself.
	root string
}

// NewResolver creates a resolver rooted at the base document's directory
func NewResolver(baseDocPath string) *Resolver {
	return &Resolver{
		fsys: os.DirFS(filepath.Dir(baseDocPath)),
		root: filepath.Base(baseDocPath),
	}
}

// NewResolverFS creates a resolver over an explicit filesystem, with
// rootName naming the base document within it
func NewResolverFS(fsys fs.FS, rootName string) *Resolver {
	return &Resolver{fsys: fsys, root: rootName}
}

// Resolve expands the base tree's include_paths patterns, parses every
// matched file, and merges the results into the base. It returns the
// merged tree plus the matched paths in merge order. A pattern matching
// nothing contributes nothing. Reads run in parallel but results re-join
// in pattern declaration order, so later matches still win on collision.
func (r *Resolver) Resolve(ctx context.Context, base *document.Node) (*document.Node, []string, error) {
	patterns := includePatterns(base)
	if len(patterns) == 0 {
		return base, nil, nil
	}

	paths, err := r.expand(patterns)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("resolved include patterns",
		zap.Int("patterns", len(patterns)),
		zap.Strings("matches", paths))

	trees := make([]*document.Node, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := r.readDocument(p)
			if err != nil {
				return err
			}
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	merged := base
	for _, tree := range trees {
		merged = Merge(merged, tree)
	}
	return merged, paths, nil
}

// expand matches every pattern in declared order. Matches within one
// pattern sort lexically; result sets concatenate across patterns without
// re-sorting. A file matched twice keeps its first position.
func (r *Resolver) expand(patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(r.fsys, path.Clean(pattern))
		if err != nil {
			return nil, &IncludeError{Path: pattern, Cause: err}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if m == r.root {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

// readDocument parses one include file, which must be a top-level mapping
func (r *Resolver) readDocument(p string) (*document.Node, error) {
	data, err := fs.ReadFile(r.fsys, p)
	if err != nil {
		return nil, &IncludeError{Path: p, Cause: err}
	}
	tree, err := document.Parse(data)
	if err != nil {
		return nil, &IncludeError{Path: p, Cause: err}
	}
	if !tree.IsMapping() {
		return nil, &IncludeError{Path: p, Cause: fmt.Errorf("document is not a mapping")}
	}
	return tree, nil
}

// includePatterns reads include_paths from the base tree, in order.
// Non-scalar entries are ignored here; the validator reports them.
func includePatterns(base *document.Node) []string {
	seq, ok := base.Get("include_paths")
	if !ok || !seq.IsSequence() {
		return nil
	}
	var patterns []string
	for _, item := range seq.Items {
		if item.IsScalar() && !item.IsNull() {
			patterns = append(patterns, item.Str())
		}
	}
	return patterns
}
