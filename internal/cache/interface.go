package cache

import (
	"context"
	"os"
	"time"

	"github.com/eltwork/eltctl/internal/loader"
	"github.com/eltwork/eltctl/internal/schema"
)

// Entry is one cached load outcome, keyed by the root document path and
// guarded by the modification times of every contributing file.
type Entry struct {
	LoadID   string           `json:"load_id"`
	Files    map[string]int64 `json:"files"` // absolute path -> mtime, unix nanos
	Report   *schema.Report   `json:"report"`
	Refused  bool             `json:"refused"`
	CachedAt time.Time        `json:"cached_at"`
}

// NewEntry snapshots a load result together with the current modification
// time of each file that produced it.
func NewEntry(result *loader.Result) (*Entry, error) {
	files := make(map[string]int64)
	for _, path := range result.Files() {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		files[path] = info.ModTime().UnixNano()
	}
	return &Entry{
		LoadID:   result.LoadID,
		Files:    files,
		Report:   result.Report,
		Refused:  result.Refused,
		CachedAt: time.Now(),
	}, nil
}

// Stale reports whether any contributing file changed, appeared, or went
// away since the entry was stored.
func (e *Entry) Stale() bool {
	for path, mtime := range e.Files {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().UnixNano() != mtime {
			return true
		}
	}
	return false
}

// ReportCache stores validation outcomes between tool invocations.
// The core loader never consults it; callers layer it on top.
type ReportCache interface {
	// Open initializes the cache and makes it ready for use
	Open() error

	// Close releases any resources held by the cache
	Close() error

	// Get retrieves the entry for a root document path
	Get(ctx context.Context, rootPath string) (*Entry, error)

	// Put stores the entry for a root document path
	Put(ctx context.Context, rootPath string, entry *Entry) error

	// Delete removes the entry for a root document path
	Delete(ctx context.Context, rootPath string) error
}

// ErrEntryNotFound is returned when no entry exists for the given path
type ErrEntryNotFound struct {
	Path string
}

// Error implements the error interface
func (e ErrEntryNotFound) Error() string {
	return "cache entry not found: " + e.Path
}

// IsNotFound returns true if the error is ErrEntryNotFound
func IsNotFound(err error) bool {
	_, ok := err.(ErrEntryNotFound)
	return ok
}
