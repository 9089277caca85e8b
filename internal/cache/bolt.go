package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/eltwork/eltctl/internal/utils/logger"
)

const (
	// DefaultBoltFilePath is the default path for the cache file
	DefaultBoltFilePath = ".eltctl/report-cache.db"

	// DefaultBoltFileMode is the default file mode for the cache file
	DefaultBoltFileMode = 0600

	// DefaultBoltTimeout bounds how long opening the file may block
	DefaultBoltTimeout = 1 * time.Second
)

var reportBucket = []byte("reports")

// BoltCache implements ReportCache on a bbolt file
type BoltCache struct {
	db      *bolt.DB
	path    string
	options *BoltOptions
}

// BoltOptions configures the bbolt cache
type BoltOptions struct {
	// Path to the cache file
	Path string
	// File mode for the cache file
	FileMode os.FileMode
	// Timeout for opening the file
	Timeout time.Duration
}

// NewBoltCache creates a BoltCache with the given options
func NewBoltCache(opts *BoltOptions) *BoltCache {
	if opts == nil {
		opts = &BoltOptions{}
	}
	if opts.Path == "" {
		opts.Path = DefaultBoltFilePath
	}
	if opts.FileMode == 0 {
		opts.FileMode = DefaultBoltFileMode
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultBoltTimeout
	}
	return &BoltCache{path: opts.Path, options: opts}
}

// Open initializes the bbolt database and the reports bucket
func (c *BoltCache) Open() error {
	logger.Debug("opening report cache", zap.String("path", c.path))

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(c.path, c.options.FileMode, &bolt.Options{Timeout: c.options.Timeout})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	c.db = db

	err = c.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(reportBucket)
		return err
	})
	if err != nil {
		c.db.Close()
		return fmt.Errorf("failed to initialize cache bucket: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (c *BoltCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get retrieves the entry for a root document path
func (c *BoltCache) Get(ctx context.Context, rootPath string) (*Entry, error) {
	var entry *Entry
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(reportBucket).Get([]byte(rootPath))
		if data == nil {
			return ErrEntryNotFound{Path: rootPath}
		}
		entry = &Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return fmt.Errorf("failed to unmarshal cache entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Put stores the entry for a root document path
func (c *BoltCache) Put(ctx context.Context, rootPath string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reportBucket).Put([]byte(rootPath), data)
	})
}

// Delete removes the entry for a root document path
func (c *BoltCache) Delete(ctx context.Context, rootPath string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(reportBucket).Delete([]byte(rootPath))
	})
}
