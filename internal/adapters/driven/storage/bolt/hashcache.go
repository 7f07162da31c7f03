// Package bolt provides a persistent content-hash cache backed by bbolt.
//
// The cache lets the hash conflict strategy skip re-reading files that are
// already on disk. Entries are keyed by absolute path and carry the size and
// modification time observed when the hash was taken, so a file changed
// behind the cache's back is simply a miss.
package bolt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

var bucketHashes = []byte("hashes")

// cacheFile is the database file name inside the cache directory.
const cacheFile = "hashes.db"

// Ensure HashCache implements the interface.
var _ driven.HashCache = (*HashCache)(nil)

type entry struct {
	Size    int64  `json:"size"`
	ModTime int64  `json:"mtime"`
	Hash    string `json:"hash"`
}

// HashCache implements driven.HashCache using bbolt.
type HashCache struct {
	db *bolt.DB
}

// NewHashCache opens (creating if needed) the cache in dir.
func NewHashCache(dir string) (*HashCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create hash cache dir: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, cacheFile), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open hash cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHashes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create hash bucket: %w", err)
	}

	return &HashCache{db: db}, nil
}

// Get returns the cached hash for path if size and modTime still match.
func (c *HashCache) Get(path string, size int64, modTime time.Time) (string, bool, error) {
	var e entry
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketHashes).Get(key(path))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return "", false, fmt.Errorf("read hash cache: %w", err)
	}
	if !found || e.Size != size || e.ModTime != modTime.UnixNano() {
		return "", false, nil
	}
	return e.Hash, true, nil
}

// Put records the hash of path at the given size and modification time.
func (c *HashCache) Put(path string, size int64, modTime time.Time, hash string) error {
	data, err := json.Marshal(entry{Size: size, ModTime: modTime.UnixNano(), Hash: hash})
	if err != nil {
		return err
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHashes).Put(key(path), data)
	})
	if err != nil {
		return fmt.Errorf("write hash cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *HashCache) Close() error {
	return c.db.Close()
}

func key(path string) []byte {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return []byte(filepath.Clean(path))
}
