// Package asset is the boundary to archive and filesystem collaborators. The
// ECS only sees opaque byte buffers turned into handles by LoadSystem.
package asset

import (
	"fmt"
	"hash/fnv"
	"io/fs"
	"sync"
)

// Loader resolves a path to the raw bytes of an asset.
type Loader interface {
	Load(path string) ([]byte, error)
}

// FSLoader reads assets from an fs.FS, typically os.DirFS of the asset root.
type FSLoader struct {
	fsys fs.FS
}

func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

func (l *FSLoader) Load(path string) ([]byte, error) {
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", path, err)
	}
	return data, nil
}

// Handle identifies a loaded asset. Equal paths produce equal handles.
type Handle struct {
	ID   uint32
	Size int
}

// Cache loads every path at most once and remembers failures.
type Cache struct {
	loader Loader

	mu      sync.Mutex
	handles map[string]Handle
	failed  map[string]error
}

func NewCache(loader Loader) *Cache {
	return &Cache{
		loader:  loader,
		handles: make(map[string]Handle),
		failed:  make(map[string]error),
	}
}

// Resolve returns the handle of path, loading it on first use.
func (c *Cache) Resolve(path string) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[path]; ok {
		return h, nil
	}
	if err, ok := c.failed[path]; ok {
		return Handle{}, err
	}
	data, err := c.loader.Load(path)
	if err != nil {
		c.failed[path] = err
		return Handle{}, err
	}
	hs := fnv.New32a()
	hs.Write([]byte(path))
	h := Handle{ID: hs.Sum32(), Size: len(data)}
	c.handles[path] = h
	return h, nil
}

// Len returns the number of loaded assets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}
