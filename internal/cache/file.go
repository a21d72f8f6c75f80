package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName       = "grit-find"
	cacheFileName = "cache.json"
)

// DefaultDir returns the per-user cache directory for grit-find
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user cache directory: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// FileStore keeps the cache as a single JSON document. Every Save rewrites
// the whole file. There is no locking; concurrent runs race and the last
// writer wins, but the rename keeps readers from ever seeing a torn file.
type FileStore struct {
	path string
}

// NewFileStore stores the cache at dir/cache.json
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, cacheFileName)}
}

// Path returns the cache file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cache file. A missing file is an empty cache.
func (s *FileStore) Load(ctx context.Context) (*Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, &CacheError{Op: "load", Path: s.path, Err: err}
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, &CacheError{Op: "load", Path: s.path, Err: err}
	}
	c.normalize()
	return c, nil
}

// Save replaces the cache file with c
func (s *FileStore) Save(ctx context.Context, c *Cache) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return &CacheError{Op: "save", Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &CacheError{Op: "save", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "cache-*")
	if err != nil {
		return &CacheError{Op: "save", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return &CacheError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &CacheError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return &CacheError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}
