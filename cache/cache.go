// Package cache validates, loads and caches audio resource metadata
// under a bounded size budget with least-recently-used eviction, and
// manages downloads and preload batches.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	gocache "github.com/patrickmn/go-cache"

	"github.com/hmalhotra-labs/mindloop-audio/backend"
	"github.com/hmalhotra-labs/mindloop-audio/catalog"
	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
	"github.com/hmalhotra-labs/mindloop-audio/internal/logger"
)

const (
	DefaultMaxSize       = 50 << 20 // 50 MiB
	DefaultLoadTimeout   = 10 * time.Second
	DefaultDownloadGrace = 3 * time.Second
)

// DefaultDownloadDir returns the directory used when Options leaves
// DownloadDir empty.
func DefaultDownloadDir() string {
	return filepath.Join(xdg.CacheHome, "mindloop-audio", "downloads")
}

// Entry is the cached record of one loaded resource.
type Entry struct {
	SoundID      string
	Duration     time.Duration
	Size         int64
	Format       string
	Bitrate      int // bits per second
	Quality      catalog.Tier
	LastAccessed time.Time
	Cached       bool
	Location     string // resolved local path
}

// Options configure a FileCache.
type Options struct {
	// MaxSize bounds the summed Entry.Size. Zero means DefaultMaxSize.
	MaxSize int64
	// LoadTimeout bounds one resource load. Zero means DefaultLoadTimeout.
	LoadTimeout time.Duration
	// DownloadDir receives downloaded files. Empty means a directory
	// under the user cache home.
	DownloadDir string
	// DownloadGrace keeps finished download tasks readable before they
	// are removed. Zero means DefaultDownloadGrace.
	DownloadGrace time.Duration
	// Journal optionally records download history. Nil disables it.
	Journal *Journal
}

// LoadOptions tune one load.
type LoadOptions struct {
	// Quality is the tier to adjust the loaded metadata to. TierUnknown
	// keeps the source tier.
	Quality catalog.Tier
	// SourceQuality is the tier the stored resource was produced at.
	// TierUnknown disables the adjustment.
	SourceQuality catalog.Tier
	// NoCache loads and validates without inserting a cache entry.
	NoCache bool
}

// FileCache is the resource cache. All methods are safe for concurrent
// use.
type FileCache struct {
	loader  Loader
	maxSize int64
	timeout time.Duration
	dir     string
	grace   time.Duration
	journal *Journal
	client  *http.Client

	mu      sync.Mutex
	entries map[string]*Entry
	size    int64

	// One preload batch runs at a time; waiting batches are visible in
	// pending until they start.
	batchMu sync.Mutex
	pendMu  sync.Mutex
	pending []string

	dlMu  sync.Mutex
	tasks *gocache.Cache
}

// New creates a cache that resolves resources through loader.
func New(loader Loader, opts Options) *FileCache {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	grace := opts.DownloadGrace
	if grace <= 0 {
		grace = DefaultDownloadGrace
	}
	dir := opts.DownloadDir
	if dir == "" {
		dir = DefaultDownloadDir()
	}
	return &FileCache{
		loader:  loader,
		maxSize: maxSize,
		timeout: timeout,
		dir:     dir,
		grace:   grace,
		journal: opts.Journal,
		client:  &http.Client{},
		entries: make(map[string]*Entry),
		tasks:   gocache.New(gocache.NoExpiration, time.Second),
	}
}

// Load resolves a resource: path validation, cache hit, bounded load,
// quality adjustment, then insertion with eviction. A cache hit returns
// immediately and refreshes the entry's access time.
func (c *FileCache) Load(ctx context.Context, soundID, path string, opts LoadOptions) (Entry, error) {
	if soundID == "" {
		return Entry{}, errdefs.Validationf("empty sound id")
	}
	if err := validatePath(path); err != nil {
		return Entry{}, err
	}

	c.mu.Lock()
	if entry, ok := c.entries[soundID]; ok && entry.Cached {
		entry.LastAccessed = time.Now()
		hit := *entry
		c.mu.Unlock()
		return hit, nil
	}
	c.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	md, err := c.loader.Probe(loadCtx, soundID, path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Entry{}, errdefs.Timeoutf("loading %q took longer than %v", soundID, c.timeout)
		}
		return Entry{}, fmt.Errorf("loading %q: %w", soundID, err)
	}

	entry := Entry{
		SoundID:      soundID,
		Duration:     md.Duration,
		Size:         md.Size,
		Format:       md.Format,
		Bitrate:      md.Bitrate,
		LastAccessed: time.Now(),
		Location:     md.Location,
	}
	adjustQuality(&entry, opts)

	if opts.NoCache {
		return entry, nil
	}
	if entry.Size > c.maxSize {
		logger.Warn("resource larger than the whole cache, not caching",
			logger.String("sound", soundID),
			logger.Int64("size", entry.Size),
			logger.Int64("max", c.maxSize))
		return entry, nil
	}
	entry.Cached = true

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[soundID]; ok {
		c.size -= old.Size
		delete(c.entries, soundID)
	}
	c.evictLocked(entry.Size)
	stored := entry
	c.entries[soundID] = &stored
	c.size += entry.Size

	logger.Debug("resource cached",
		logger.String("sound", soundID),
		logger.Int64("size", entry.Size),
		logger.Int64("total", c.size))
	return entry, nil
}

// evictLocked frees space for an incoming entry of the given size,
// removing entries oldest access time first.
func (c *FileCache) evictLocked(incoming int64) {
	for c.size+incoming > c.maxSize && len(c.entries) > 0 {
		var (
			victimID string
			oldest   time.Time
		)
		for id, entry := range c.entries {
			if victimID == "" || entry.LastAccessed.Before(oldest) {
				victimID = id
				oldest = entry.LastAccessed
			}
		}
		victim := c.entries[victimID]
		delete(c.entries, victimID)
		c.size -= victim.Size

		logger.Debug("cache evicted",
			logger.String("sound", victimID),
			logger.Int64("freed", victim.Size),
			logger.Int64("total", c.size))
	}
}

// adjustQuality scales size and bitrate to the requested tier when it
// differs from the tier the resource was stored at. Duration is a
// property of the recording and never changes.
func adjustQuality(entry *Entry, opts LoadOptions) {
	quality := opts.Quality
	if quality == catalog.TierUnknown {
		quality = opts.SourceQuality
	}
	entry.Quality = quality
	if quality == catalog.TierUnknown || opts.SourceQuality == catalog.TierUnknown {
		return
	}
	if quality == opts.SourceQuality {
		return
	}
	factor := quality.SizeFactor() / opts.SourceQuality.SizeFactor()
	entry.Size = int64(float64(entry.Size) * factor)
	entry.Bitrate = int(float64(entry.Bitrate) * factor)
}

// Metadata returns the cached entry for id without refreshing its
// access time.
func (c *FileCache) Metadata(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// IsCached reports whether id has a cached entry.
func (c *FileCache) IsCached(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	return ok && entry.Cached
}

// Stats describes the cache occupancy.
type Stats struct {
	Size     int64
	MaxSize  int64
	Count    int
	SoundIDs []string
}

func (s Stats) String() string {
	return fmt.Sprintf("%d cached sounds, %s of %s used",
		s.Count, humanize.IBytes(uint64(s.Size)), humanize.IBytes(uint64(s.MaxSize)))
}

// Stats returns the current occupancy with a sorted id list.
func (c *FileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Size:     c.size,
		MaxSize:  c.maxSize,
		Count:    len(c.entries),
		SoundIDs: make([]string, 0, len(c.entries)),
	}
	for id := range c.entries {
		stats.SoundIDs = append(stats.SoundIDs, id)
	}
	sort.Strings(stats.SoundIDs)
	return stats
}

// Clear empties the cache and resets size accounting.
func (c *FileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.size = 0
	logger.Debug("cache cleared")
}

// validatePath checks that path is a local file path or http(s) URL
// whose extension the backend can decode.
func validatePath(p string) error {
	if p == "" {
		return errdefs.Validationf("empty resource path")
	}
	if u, err := url.Parse(p); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if u.Host == "" {
			return errdefs.Validationf("url %q has no host", p)
		}
		if ext := strings.ToLower(path.Ext(u.Path)); !backend.SupportedExtension(ext) {
			return errdefs.UnsupportedFormatf("url %q: extension %q not in %v", p, ext, backend.Extensions())
		}
		return nil
	}
	if ext := strings.ToLower(filepath.Ext(p)); !backend.SupportedExtension(ext) {
		return errdefs.UnsupportedFormatf("path %q: extension %q not in %v", p, ext, backend.Extensions())
	}
	return nil
}
