package driven

import "time"

// HashCache remembers content hashes of files already on disk.
// An entry is valid only while the file's size and modification time match.
type HashCache interface {
	// Get returns the cached hash for path, or false if none matches.
	Get(path string, size int64, modTime time.Time) (string, bool, error)

	// Put records the hash of path at the given size and modification time.
	Put(path string, size int64, modTime time.Time, hash string) error

	// Close releases the cache.
	Close() error
}
