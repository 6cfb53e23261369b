// Package cache holds process-wide, file-keyed caches for derived artifacts
// (reference patterns, analyzed form structures).
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FileKey identifies one version of a file on disk.
type FileKey struct {
	Path    string
	ModTime int64
	Size    int64
}

func (k FileKey) String() string {
	return fmt.Sprintf("%s|%d|%d", k.Path, k.ModTime, k.Size)
}

// KeyFor stats path and returns its current key.
func KeyFor(path string) (FileKey, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileKey{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileKey{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FileKey{Path: abs, ModTime: info.ModTime().UnixNano(), Size: info.Size()}, nil
}

// Cache memoizes one value per FileKey. Concurrent misses for the same key share a single load.
// When a newer version of a path is stored, older versions of that path are dropped.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[FileKey]V
	group singleflight.Group
}

func New[V any]() *Cache[V] {
	return &Cache[V]{items: map[FileKey]V{}}
}

// Get returns the cached value for key, calling load at most once per key across goroutines.
// Failed loads are not cached.
func (c *Cache[V]) Get(key FileKey, load func() (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		v, ok := c.items[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		for k := range c.items {
			if k.Path == key.Path {
				delete(c.items, k)
			}
		}
		c.items[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// GetFile keys the lookup by path's current version.
func (c *Cache[V]) GetFile(path string, load func(path string) (V, error)) (V, error) {
	key, err := KeyFor(path)
	if err != nil {
		var zero V
		return zero, err
	}
	return c.Get(key, func() (V, error) { return load(key.Path) })
}

// Len reports the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
