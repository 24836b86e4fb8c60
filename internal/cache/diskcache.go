package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Entry represents a cache entry
type Entry struct {
	Key     string
	Path    string
	Size    int64
	element *list.Element
}

// DiskCache implements an LRU disk cache of audio streams that persists
// across sessions
type DiskCache struct {
	mu          sync.Mutex
	cacheDir    string
	maxSize     int64
	currentSize int64

	// LRU tracking
	entries map[string]*Entry
	lru     *list.List

	// Download synchronization - prevents concurrent downloads of same key
	downloadLocks sync.Map // map[string]*sync.Mutex

	client *http.Client
}

// NewDiskCache creates a new disk-based LRU cache.
// On startup, it scans the cache directory and loads existing cached files.
func NewDiskCache(cacheDir string, maxSizeBytes int64) (*DiskCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &DiskCache{
		cacheDir: cacheDir,
		maxSize:  maxSizeBytes,
		entries:  make(map[string]*Entry),
		lru:      list.New(),
		client:   http.DefaultClient,
	}

	if err := c.scan(); err != nil {
		return nil, fmt.Errorf("failed to scan cache: %w", err)
	}

	return c, nil
}

// scan loads existing cache entries from disk
func (c *DiskCache) scan() error {
	return filepath.Walk(c.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		// Leftovers from interrupted downloads
		if filepath.Ext(path) == ".tmp" {
			os.Remove(path)
			return nil
		}

		key := filepath.Base(path)
		entry := &Entry{
			Key:  key,
			Path: path,
			Size: info.Size(),
		}
		entry.element = c.lru.PushBack(entry)
		c.entries[key] = entry
		c.currentSize += info.Size()

		return nil
	})
}

// hashKey creates a consistent hash for a key
func (c *DiskCache) hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// keyToPath converts a cache key to filesystem path
func (c *DiskCache) keyToPath(key string) string {
	return filepath.Join(c.cacheDir, c.hashKey(key))
}

// Get returns the path of a cached entry and marks it recently used
func (c *DiskCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := c.hashKey(key)
	entry, exists := c.entries[hash]
	if !exists {
		return "", false
	}

	if _, err := os.Stat(entry.Path); err != nil {
		// File disappeared, remove from cache
		c.drop(entry)
		return "", false
	}

	c.lru.MoveToFront(entry.element)
	return entry.Path, true
}

// Put stores the contents of reader under key
func (c *DiskCache) Put(key string, reader io.Reader) (string, error) {
	path := c.keyToPath(key)
	tempPath := path + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}

	size, err := io.Copy(f, reader)
	f.Close()
	if err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hash := c.hashKey(key)
	if entry, exists := c.entries[hash]; exists {
		os.Remove(tempPath)
		c.lru.MoveToFront(entry.element)
		return entry.Path, nil
	}

	// Evict until there's space
	for c.currentSize+size > c.maxSize && c.lru.Len() > 0 {
		c.evictOldest()
	}

	// Rename temp file to final path (atomic)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to finalize cache file: %w", err)
	}

	entry := &Entry{
		Key:  hash,
		Path: path,
		Size: size,
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[hash] = entry
	c.currentSize += size

	return path, nil
}

// evictOldest removes the least recently used entry
func (c *DiskCache) evictOldest() {
	element := c.lru.Back()
	if element == nil {
		return
	}
	c.drop(element.Value.(*Entry))
}

func (c *DiskCache) drop(entry *Entry) {
	c.lru.Remove(entry.element)
	delete(c.entries, entry.Key)
	c.currentSize -= entry.Size
	os.Remove(entry.Path)
}

// Invalidate removes a cache entry both from memory and disk.
// Use this when a cached file is discovered to be corrupt or invalid.
func (c *DiskCache) Invalidate(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := c.hashKey(key)
	entry, exists := c.entries[hash]
	if !exists {
		return nil
	}

	c.lru.Remove(entry.element)
	delete(c.entries, hash)
	c.currentSize -= entry.Size

	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}

	log.Debug().Str("key", key).Str("hash", hash).Msg("Invalidated cache entry")
	return nil
}

// Clear removes all cache entries
func (c *DiskCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.lru = list.New()
	c.currentSize = 0

	if err := os.RemoveAll(c.cacheDir); err != nil {
		return err
	}
	return os.MkdirAll(c.cacheDir, 0755)
}

// Size returns current cache size in bytes
func (c *DiskCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Len returns the number of cached entries
func (c *DiskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// getDownloadLock returns a mutex for the given key to prevent concurrent downloads
func (c *DiskCache) getDownloadLock(key string) *sync.Mutex {
	lock, _ := c.downloadLocks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Fetch ensures the stream at url is cached under key and returns its path
func (c *DiskCache) Fetch(ctx context.Context, key, url string) (string, error) {
	if path, ok := c.Get(key); ok {
		return path, nil
	}

	lock := c.getDownloadLock(key)
	lock.Lock()
	defer lock.Unlock()

	// Check again after acquiring lock (another goroutine may have completed it)
	if path, ok := c.Get(key); ok {
		return path, nil
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		f, err := os.Open(url)
		if err != nil {
			return "", fmt.Errorf("failed to open source: %w", err)
		}
		defer f.Close()
		return c.Put(key, f)
	}

	log.Debug().Str("key", key).Msg("Downloading stream")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: HTTP %d", resp.StatusCode)
	}

	path, err := c.Put(key, resp.Body)
	if err != nil {
		return "", err
	}

	log.Debug().Str("key", key).Str("path", path).Msg("Download complete")
	return path, nil
}
