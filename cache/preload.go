package cache

import (
	"context"

	"github.com/hmalhotra-labs/mindloop-audio/catalog"
	"github.com/hmalhotra-labs/mindloop-audio/internal/logger"
)

// PreloadItem names one resource to load ahead of playback. Quality is
// the tier the source material comes in; TierUnknown leaves entries
// unadjusted.
type PreloadItem struct {
	SoundID string
	Path    string
	Quality catalog.Tier
}

// PreloadResult is the outcome for one item of a batch.
type PreloadResult struct {
	SoundID string
	Entry   Entry
	Err     error
}

// Preload loads a batch of resources. Every item is attempted
// independently; a failed item never aborts the rest. One batch runs
// at a time — batches arriving while another is in flight wait their
// turn, visible through PendingPreloads until they start.
func (c *FileCache) Preload(ctx context.Context, items []PreloadItem, opts LoadOptions) []PreloadResult {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.SoundID
	}
	c.queuePreload(ids)
	c.batchMu.Lock()
	defer c.batchMu.Unlock()
	c.dequeuePreload(ids)

	results := make([]PreloadResult, 0, len(items))
	failed := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			results = append(results, PreloadResult{SoundID: item.SoundID, Err: err})
			failed++
			continue
		}
		itemOpts := opts
		if item.Quality != catalog.TierUnknown {
			itemOpts.SourceQuality = item.Quality
		}
		entry, err := c.Load(ctx, item.SoundID, item.Path, itemOpts)
		if err != nil {
			failed++
		}
		results = append(results, PreloadResult{SoundID: item.SoundID, Entry: entry, Err: err})
	}

	logger.Debug("preload batch settled",
		logger.Int("sounds", len(items)),
		logger.Int("failed", failed))
	return results
}

// PendingPreloads lists the sound ids of batches waiting behind the
// one in flight.
func (c *FileCache) PendingPreloads() []string {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	out := make([]string, len(c.pending))
	copy(out, c.pending)
	return out
}

func (c *FileCache) queuePreload(ids []string) {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	c.pending = append(c.pending, ids...)
}

func (c *FileCache) dequeuePreload(ids []string) {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	for _, id := range ids {
		for i, pending := range c.pending {
			if pending == id {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				break
			}
		}
	}
}
