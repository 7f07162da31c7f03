package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
	"github.com/custodia-labs/slack-archive/internal/logger"
)

// maxSuffix bounds the search for a free suffixed path.
const maxSuffix = 10000

// ConflictResolver decides what to do when a download target already exists.
type ConflictResolver struct {
	fs    afero.Fs
	cache driven.HashCache
}

// NewConflictResolver creates a resolver over fs. cache may be nil.
func NewConflictResolver(fsys afero.Fs, cache driven.HashCache) *ConflictResolver {
	return &ConflictResolver{fs: fsys, cache: cache}
}

// Resolve decides how to materialise a file of the given size and content
// hash at path. The hash strategy needs the candidate's hash once path is
// occupied; an empty hash is then ErrInvalidInput.
func (r *ConflictResolver) Resolve(ctx context.Context, path string, strategy domain.ConflictStrategy, size int64, hash string) (domain.ConflictDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.ConflictDecision{}, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}

	info, err := r.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return domain.DecisionOverwrite, nil
	}
	if err != nil {
		return domain.ConflictDecision{}, fmt.Errorf("stat %s: %w", path, err)
	}

	switch strategy {
	case domain.ConflictStrategySkip:
		return domain.DecisionSkipExisting, nil
	case domain.ConflictStrategyOverwrite:
		return domain.DecisionOverwrite, nil
	case domain.ConflictStrategyHash:
		if hash == "" {
			return domain.ConflictDecision{}, fmt.Errorf("%w: hash strategy needs the content hash of %s", domain.ErrInvalidInput, path)
		}
	default:
		return domain.ConflictDecision{}, fmt.Errorf("%w: conflict strategy %q", domain.ErrInvalidInput, strategy)
	}

	if info.IsDir() {
		return r.renameDecision(path)
	}

	if info.Size() == size {
		existing, err := r.existingHash(path, info)
		if err != nil {
			return domain.ConflictDecision{}, err
		}
		if existing == hash {
			return domain.DecisionTreatAsIdentical, nil
		}
	}

	return r.renameDecision(path)
}

// renameDecision picks the smallest free suffix for path.
func (r *ConflictResolver) renameDecision(path string) (domain.ConflictDecision, error) {
	for n := 1; n <= maxSuffix; n++ {
		exists, err := afero.Exists(r.fs, domain.SuffixedPath(path, n))
		if err != nil {
			return domain.ConflictDecision{}, fmt.Errorf("check %s: %w", domain.SuffixedPath(path, n), err)
		}
		if !exists {
			return domain.RenameWithSuffix(n), nil
		}
	}
	return domain.ConflictDecision{}, fmt.Errorf("no free name for %s after %d attempts", path, maxSuffix)
}

// existingHash returns the sha256 of the file at path, from the cache when
// the cached entry still matches the file's size and modification time.
func (r *ConflictResolver) existingHash(path string, info os.FileInfo) (string, error) {
	if r.cache != nil {
		if hash, ok, err := r.cache.Get(path, info.Size(), info.ModTime()); err != nil {
			logger.Warn("Hash cache lookup failed for %s: %v", path, err)
		} else if ok {
			return hash, nil
		}
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hash, err := HashReader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	if r.cache != nil {
		if err := r.cache.Put(path, info.Size(), info.ModTime(), hash); err != nil {
			logger.Warn("Hash cache update failed for %s: %v", path, err)
		}
	}
	return hash, nil
}

// Remember caches the hash of a file just written at path.
func (r *ConflictResolver) Remember(path, hash string) {
	if r.cache == nil || hash == "" {
		return
	}
	info, err := r.fs.Stat(path)
	if err != nil {
		logger.Debug("Cannot cache hash of %s: %v", path, err)
		return
	}
	if err := r.cache.Put(path, info.Size(), info.ModTime(), hash); err != nil {
		logger.Warn("Hash cache update failed for %s: %v", path, err)
	}
}

// HashReader returns the hex sha256 of everything read from rd.
func HashReader(rd io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, rd); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
