package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/hmalhotra-labs/mindloop-audio/catalog"
	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

func testMetadata(size int64) Metadata {
	return Metadata{
		Duration: time.Minute,
		Size:     size,
		Format:   "ogg",
		Bitrate:  128000,
	}
}

func TestLoadCachesEntry(t *testing.T) {
	loader := NewStaticLoader()
	loader.Set("rain", testMetadata(1000))
	c := New(loader, Options{MaxSize: 10000})

	entry, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !entry.Cached {
		t.Error("entry not cached")
	}
	if entry.Size != 1000 || entry.Duration != time.Minute || entry.Format != "ogg" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Location != "sounds/rain.ogg" {
		t.Errorf("Location = %q", entry.Location)
	}
	if !c.IsCached("rain") {
		t.Error("IsCached(rain) = false")
	}

	// The second load is a hit and never reaches the loader.
	if _, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", LoadOptions{}); err != nil {
		t.Fatalf("Load() on hit error = %v", err)
	}
	if calls := loader.Calls(); len(calls) != 1 {
		t.Errorf("loader probed %d times, want 1", len(calls))
	}
}

func TestLoadValidatesPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		kind func(error) bool
	}{
		{"empty path", "", errdefs.IsValidation},
		{"text file", "notes/readme.txt", errdefs.IsUnsupportedFormat},
		{"no extension", "sounds/rain", errdefs.IsUnsupportedFormat},
		{"url without audio extension", "https://cdn.example.com/rain", errdefs.IsUnsupportedFormat},
		{"url without host", "https:///rain.mp3", errdefs.IsValidation},
	}

	loader := NewStaticLoader()
	c := New(loader, Options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Load(context.Background(), "rain", tt.path, LoadOptions{})
			if err == nil {
				t.Fatalf("Load(%q) = nil, want error", tt.path)
			}
			if !tt.kind(err) {
				t.Errorf("Load(%q) error = %v, wrong kind", tt.path, err)
			}
		})
	}

	// Validation happens before any loader work.
	if calls := loader.Calls(); len(calls) != 0 {
		t.Errorf("loader probed %d times, want 0", len(calls))
	}
}

func TestLoadAcceptsRemoteURL(t *testing.T) {
	loader := NewStaticLoader()
	loader.Set("rain", testMetadata(1000))
	c := New(loader, Options{})

	entry, err := c.Load(context.Background(), "rain", "https://cdn.example.com/sounds/rain.mp3", LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !entry.Cached {
		t.Error("entry not cached")
	}
}

func TestLoadEmptySoundID(t *testing.T) {
	c := New(NewStaticLoader(), Options{})
	if _, err := c.Load(context.Background(), "", "sounds/rain.ogg", LoadOptions{}); !errdefs.IsValidation(err) {
		t.Errorf("Load with empty id error = %v, want validation kind", err)
	}
}

func TestLoadTimeout(t *testing.T) {
	loader := NewStaticLoader()
	loader.Set("rain", testMetadata(1000))
	loader.SetGate(make(chan struct{})) // never opened
	c := New(loader, Options{LoadTimeout: 20 * time.Millisecond})

	_, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", LoadOptions{})
	if !errdefs.IsTimeout(err) {
		t.Errorf("Load() error = %v, want timeout kind", err)
	}
	if c.IsCached("rain") {
		t.Error("timed-out load left a cache entry")
	}
}

func TestLoadKeepsLoaderErrorKind(t *testing.T) {
	loader := NewStaticLoader()
	loader.SetError("rain", errdefs.NotFoundf("resource sounds/rain.ogg"))
	c := New(loader, Options{})

	_, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", LoadOptions{})
	if !errdefs.IsNotFound(err) {
		t.Errorf("Load() error = %v, want not-found kind", err)
	}
}

func TestLoadQualityAdjustment(t *testing.T) {
	tests := []struct {
		name        string
		opts        LoadOptions
		wantSize    int64
		wantBitrate int
		wantTier    catalog.Tier
	}{
		{
			"medium to high doubles",
			LoadOptions{Quality: catalog.TierHigh, SourceQuality: catalog.TierMedium},
			2000, 256000, catalog.TierHigh,
		},
		{
			"medium to low halves",
			LoadOptions{Quality: catalog.TierLow, SourceQuality: catalog.TierMedium},
			500, 64000, catalog.TierLow,
		},
		{
			"same tier unchanged",
			LoadOptions{Quality: catalog.TierMedium, SourceQuality: catalog.TierMedium},
			1000, 128000, catalog.TierMedium,
		},
		{
			"no requested tier keeps source",
			LoadOptions{SourceQuality: catalog.TierHigh},
			1000, 128000, catalog.TierHigh,
		},
		{
			"unknown source skips adjustment",
			LoadOptions{Quality: catalog.TierHigh},
			1000, 128000, catalog.TierHigh,
		},
		{
			"low to high quadruples",
			LoadOptions{Quality: catalog.TierHigh, SourceQuality: catalog.TierLow},
			4000, 512000, catalog.TierHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewStaticLoader()
			loader.Set("rain", testMetadata(1000))
			c := New(loader, Options{})

			entry, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", tt.opts)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if entry.Size != tt.wantSize {
				t.Errorf("Size = %d, want %d", entry.Size, tt.wantSize)
			}
			if entry.Bitrate != tt.wantBitrate {
				t.Errorf("Bitrate = %d, want %d", entry.Bitrate, tt.wantBitrate)
			}
			if entry.Quality != tt.wantTier {
				t.Errorf("Quality = %v, want %v", entry.Quality, tt.wantTier)
			}
			if entry.Duration != time.Minute {
				t.Errorf("Duration = %v, adjustment must not touch it", entry.Duration)
			}
		})
	}
}

func TestLoadNoCache(t *testing.T) {
	loader := NewStaticLoader()
	loader.Set("rain", testMetadata(1000))
	c := New(loader, Options{})

	entry, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", LoadOptions{NoCache: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if entry.Cached {
		t.Error("NoCache load reported Cached = true")
	}
	if c.IsCached("rain") {
		t.Error("NoCache load left a cache entry")
	}

	// A later cached load goes back to the loader.
	if _, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !c.IsCached("rain") {
		t.Error("IsCached(rain) = false after cached load")
	}
	if calls := loader.Calls(); len(calls) != 2 {
		t.Errorf("loader probed %d times, want 2", len(calls))
	}
}

func mustLoad(t *testing.T, c *FileCache, loader *StaticLoader, id string, size int64) {
	t.Helper()
	loader.Set(id, testMetadata(size))
	if _, err := c.Load(context.Background(), id, "sounds/"+id+".ogg", LoadOptions{}); err != nil {
		t.Fatalf("Load(%s) error = %v", id, err)
	}
	// Keep access times strictly ordered across plays and touches.
	time.Sleep(2 * time.Millisecond)
}

func TestEvictionRemovesOldestAccessFirst(t *testing.T) {
	loader := NewStaticLoader()
	c := New(loader, Options{MaxSize: 100})

	mustLoad(t, c, loader, "rain", 40)
	mustLoad(t, c, loader, "waves", 40)

	// Touch rain so waves holds the oldest access time.
	if _, err := c.Load(context.Background(), "rain", "sounds/rain.ogg", LoadOptions{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	mustLoad(t, c, loader, "wind", 40)

	if !c.IsCached("rain") {
		t.Error("rain evicted although it was touched last")
	}
	if c.IsCached("waves") {
		t.Error("waves kept although it had the oldest access time")
	}
	if !c.IsCached("wind") {
		t.Error("wind not cached")
	}
	if stats := c.Stats(); stats.Size > stats.MaxSize {
		t.Errorf("Size %d exceeds MaxSize %d", stats.Size, stats.MaxSize)
	}
}

func TestEvictionCascades(t *testing.T) {
	loader := NewStaticLoader()
	c := New(loader, Options{MaxSize: 100})

	mustLoad(t, c, loader, "rain", 30)
	mustLoad(t, c, loader, "waves", 30)
	mustLoad(t, c, loader, "wind", 30)
	mustLoad(t, c, loader, "fire", 90)

	stats := c.Stats()
	if stats.Count != 1 || stats.Size != 90 {
		t.Errorf("Stats = %+v, want only the last entry", stats)
	}
	if !c.IsCached("fire") {
		t.Error("fire not cached")
	}
}

func TestOversizedEntryNotCached(t *testing.T) {
	loader := NewStaticLoader()
	c := New(loader, Options{MaxSize: 100})

	mustLoad(t, c, loader, "rain", 40)

	loader.Set("storm", testMetadata(150))
	entry, err := c.Load(context.Background(), "storm", "sounds/storm.ogg", LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if entry.Cached {
		t.Error("oversized entry reported Cached = true")
	}
	if c.IsCached("storm") {
		t.Error("oversized entry inserted")
	}
	// Nothing was evicted for it.
	if !c.IsCached("rain") {
		t.Error("existing entry evicted for an oversized one")
	}
}

func TestMetadataIsPureRead(t *testing.T) {
	loader := NewStaticLoader()
	c := New(loader, Options{MaxSize: 100})

	mustLoad(t, c, loader, "rain", 40)
	mustLoad(t, c, loader, "waves", 40)

	// Metadata reads must not refresh the access time, so rain stays
	// the eviction candidate.
	if _, ok := c.Metadata("rain"); !ok {
		t.Fatal("Metadata(rain) = not found")
	}
	mustLoad(t, c, loader, "wind", 40)

	if c.IsCached("rain") {
		t.Error("rain survived, Metadata must not count as an access")
	}
	if !c.IsCached("waves") || !c.IsCached("wind") {
		t.Error("wrong entry evicted")
	}

	if _, ok := c.Metadata("never-loaded"); ok {
		t.Error("Metadata on unknown id = found")
	}
}

func TestClear(t *testing.T) {
	loader := NewStaticLoader()
	c := New(loader, Options{})

	mustLoad(t, c, loader, "rain", 40)
	mustLoad(t, c, loader, "waves", 40)

	c.Clear()

	stats := c.Stats()
	if stats.Count != 0 || stats.Size != 0 {
		t.Errorf("Stats after Clear = %+v", stats)
	}
	if c.IsCached("rain") {
		t.Error("IsCached(rain) = true after Clear")
	}

	// The cache stays usable.
	mustLoad(t, c, loader, "rain", 40)
	if !c.IsCached("rain") {
		t.Error("reload after Clear failed")
	}
}

func TestStats(t *testing.T) {
	loader := NewStaticLoader()
	c := New(loader, Options{MaxSize: 1000})

	mustLoad(t, c, loader, "waves", 300)
	mustLoad(t, c, loader, "rain", 200)

	stats := c.Stats()
	if stats.Size != 500 || stats.MaxSize != 1000 || stats.Count != 2 {
		t.Errorf("Stats = %+v", stats)
	}
	want := []string{"rain", "waves"}
	for i := range want {
		if stats.SoundIDs[i] != want[i] {
			t.Fatalf("SoundIDs = %v, want %v (sorted)", stats.SoundIDs, want)
		}
	}
	if s := stats.String(); !strings.Contains(s, "2 cached sounds") {
		t.Errorf("String() = %q", s)
	}
}

// Random load sequences never push the summed size past the budget.
func TestCacheSizeNeverExceedsBudget(t *testing.T) {
	ids := []string{"rain", "waves", "wind", "fire", "storm"}
	rapid.Check(t, func(t *rapid.T) {
		loader := NewStaticLoader()
		c := New(loader, Options{MaxSize: 100})

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(t, "id")
			size := int64(rapid.IntRange(10, 120).Draw(t, "size"))
			loader.Set(id, testMetadata(size))

			if _, err := c.Load(context.Background(), id, "sounds/"+id+".ogg", LoadOptions{}); err != nil {
				t.Fatalf("Load(%s) error = %v", id, err)
			}

			stats := c.Stats()
			if stats.Size > stats.MaxSize {
				t.Fatalf("Size %d exceeds MaxSize %d", stats.Size, stats.MaxSize)
			}
			if stats.Count != len(stats.SoundIDs) {
				t.Fatalf("Count %d != %d ids", stats.Count, len(stats.SoundIDs))
			}
		}
	})
}
