package deck

import (
	"container/list"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/benjaminschreck/go-deck/pkg/deck/opc"
)

// CacheConfig contains configuration options for the fragment cache
type CacheConfig struct {
	// MaxSize is the maximum number of parsed fragments to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached fragments. 0 means no expiration.
	TTL time.Duration
}

// FragmentCache keeps pristine parsed packages keyed by path and hands out
// deep copies, so a template used for many pages is read and parsed once.
type FragmentCache struct {
	mu     sync.Mutex
	cache  map[string]*cacheEntry
	lru    *list.List
	config CacheConfig
	loads  singleflight.Group
}

type cacheEntry struct {
	key     string
	pkg     *opc.Package
	expiry  time.Time
	element *list.Element
}

// NewFragmentCache creates a fragment cache from the global configuration
func NewFragmentCache() *FragmentCache {
	config := GetGlobalConfig()
	return NewFragmentCacheWithConfig(CacheConfig{
		MaxSize: config.Cache.MaxSize,
		TTL:     config.CacheTTL(),
	})
}

// NewFragmentCacheWithConfig creates a fragment cache with the given configuration
func NewFragmentCacheWithConfig(config CacheConfig) *FragmentCache {
	return &FragmentCache{
		cache:  make(map[string]*cacheEntry),
		lru:    list.New(),
		config: config,
	}
}

// Load returns a fragment backed by a private copy of the package at path
func (fc *FragmentCache) Load(path string) (*Fragment, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pkg, err := fc.Package(path)
	if err != nil {
		return nil, NewFragmentError(name, "load", path, nil, err)
	}
	f := NewFragment(name, pkg)
	f.Source = path
	return f, nil
}

// Package returns a private copy of the package at path, parsing the file
// only when it is not cached. Concurrent loads of one path share a single read.
func (fc *FragmentCache) Package(path string) (*opc.Package, error) {
	if fc.config.MaxSize == 0 {
		return opc.LoadFile(path)
	}
	if pkg, ok := fc.Get(path); ok {
		return pkg, nil
	}

	v, err, _ := fc.loads.Do(path, func() (interface{}, error) {
		pkg, err := opc.LoadFile(path)
		if err != nil {
			return nil, err
		}
		fc.Set(path, pkg)
		return pkg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*opc.Package).Clone(), nil
}

// Get returns a copy of the cached package without loading
func (fc *FragmentCache) Get(key string) (*opc.Package, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	entry, exists := fc.cache[key]
	if !exists {
		return nil, false
	}
	if fc.config.TTL > 0 && time.Now().After(entry.expiry) {
		fc.removeLocked(entry)
		return nil, false
	}
	fc.lru.MoveToFront(entry.element)
	return entry.pkg.Clone(), true
}

// Set caches pkg under key. The cache keeps pkg itself; callers must not
// mutate it afterwards.
func (fc *FragmentCache) Set(key string, pkg *opc.Package) {
	if fc.config.MaxSize == 0 {
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	expiry := time.Time{}
	if fc.config.TTL > 0 {
		expiry = time.Now().Add(fc.config.TTL)
	}

	if existing, exists := fc.cache[key]; exists {
		existing.pkg = pkg
		existing.expiry = expiry
		fc.lru.MoveToFront(existing.element)
		return
	}

	if fc.lru.Len() >= fc.config.MaxSize {
		if oldest := fc.lru.Back(); oldest != nil {
			fc.removeLocked(oldest.Value.(*cacheEntry))
		}
	}

	entry := &cacheEntry{
		key:    key,
		pkg:    pkg,
		expiry: expiry,
	}
	entry.element = fc.lru.PushFront(entry)
	fc.cache[key] = entry
}

// Remove removes a package from the cache
func (fc *FragmentCache) Remove(key string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if entry, exists := fc.cache[key]; exists {
		fc.removeLocked(entry)
	}
}

func (fc *FragmentCache) removeLocked(entry *cacheEntry) {
	delete(fc.cache, entry.key)
	fc.lru.Remove(entry.element)
}

// Clear removes all packages from the cache
func (fc *FragmentCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.cache = make(map[string]*cacheEntry)
	fc.lru = list.New()
}

// Size returns the current number of cached packages
func (fc *FragmentCache) Size() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.cache)
}
