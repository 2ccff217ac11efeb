package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/hmalhotra-labs/mindloop-audio/backend"
	"github.com/hmalhotra-labs/mindloop-audio/cache"
	"github.com/hmalhotra-labs/mindloop-audio/catalog"
	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
	"github.com/hmalhotra-labs/mindloop-audio/internal/logger"
	"github.com/hmalhotra-labs/mindloop-audio/mixer"
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	catalog catalog.Catalog
	cache   *cache.FileCache
	mixer   *mixer.Mixer
}

// New creates the playback service over a catalog, a resource cache and
// a mixer. The components stay internally synchronized, so the facade
// itself carries no state.
func New(cat catalog.Catalog, fc *cache.FileCache, mx *mixer.Mixer) Service {
	return &serviceImpl{catalog: cat, cache: fc, mixer: mx}
}

// Play resolves soundID through the catalog, loads its resource through
// the cache and hands it to the mixer. Playing an id that is already
// active restarts it from the beginning.
func (s *serviceImpl) Play(ctx context.Context, soundID string, opts ...PlayOption) error {
	var cfg playConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hasVolume && (cfg.volume < 0 || cfg.volume > 1) {
		return errdefs.Validationf("volume %v is outside [0, 1]", cfg.volume)
	}

	desc, ok := s.catalog.Lookup(soundID)
	if !ok {
		return errdefs.NotFoundf("sound %q is not in the catalog", soundID)
	}

	entry, err := s.cache.Load(ctx, soundID, desc.Path, cache.LoadOptions{
		Quality:       cfg.quality,
		SourceQuality: desc.Quality,
		NoCache:       cfg.noCache,
	})
	if err != nil {
		return fmt.Errorf("loading sound %q: %w", soundID, err)
	}

	volume := desc.DefaultVolume
	if cfg.hasVolume {
		volume = cfg.volume
	}
	// The probed duration wins; the catalog's is a hint for loaders
	// that cannot measure one.
	duration := entry.Duration
	if duration == 0 {
		duration = desc.Duration
	}

	if err := s.mixer.Play(backend.Source{
		SoundID:  soundID,
		Location: entry.Location,
		Duration: duration,
		Volume:   volume,
		Loop:     desc.Loop,
	}); err != nil {
		return err
	}
	logger.Debug("sound started",
		logger.String("sound", soundID),
		logger.Float64("volume", volume))
	return nil
}

func (s *serviceImpl) Pause() error {
	return s.mixer.Pause()
}

func (s *serviceImpl) Resume() error {
	return s.mixer.Resume()
}

func (s *serviceImpl) PauseSound(soundID string) bool {
	return s.mixer.PauseSound(soundID)
}

func (s *serviceImpl) ResumeSound(soundID string) bool {
	return s.mixer.ResumeSound(soundID)
}

func (s *serviceImpl) Stop() error {
	return s.mixer.Stop()
}

func (s *serviceImpl) StopSound(soundID string) bool {
	return s.mixer.StopSound(soundID)
}

func (s *serviceImpl) SetVolume(v float64) error {
	return s.mixer.SetVolume(v)
}

func (s *serviceImpl) SetSoundVolume(soundID string, v float64) error {
	return s.mixer.SetSoundVolume(soundID, v)
}

func (s *serviceImpl) Volume() float64 {
	return s.mixer.Volume()
}

// State returns an atomic snapshot of the engine.
func (s *serviceImpl) State() State {
	return stateFromSnapshot(s.mixer.State())
}

func (s *serviceImpl) IsPlaying() bool {
	return s.mixer.IsPlaying()
}

func (s *serviceImpl) IsSoundPlaying(soundID string) bool {
	return s.mixer.IsSoundPlaying(soundID)
}

func (s *serviceImpl) CurrentSound() string {
	return s.mixer.Current()
}

func (s *serviceImpl) SoundTime(soundID string) (time.Duration, bool) {
	return s.mixer.SoundTime(soundID)
}

// Preload warms the cache for a set of catalog sounds. Unknown ids fail
// their own slot; the rest of the batch still runs. Volume options are
// ignored here.
func (s *serviceImpl) Preload(ctx context.Context, soundIDs []string, opts ...PlayOption) []cache.PreloadResult {
	var cfg playConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	results := make([]cache.PreloadResult, len(soundIDs))
	items := make([]cache.PreloadItem, 0, len(soundIDs))
	slots := make([]int, 0, len(soundIDs))
	for i, id := range soundIDs {
		desc, ok := s.catalog.Lookup(id)
		if !ok {
			results[i] = cache.PreloadResult{
				SoundID: id,
				Err:     errdefs.NotFoundf("sound %q is not in the catalog", id),
			}
			continue
		}
		items = append(items, cache.PreloadItem{SoundID: id, Path: desc.Path, Quality: desc.Quality})
		slots = append(slots, i)
	}

	batch := s.cache.Preload(ctx, items, cache.LoadOptions{
		Quality: cfg.quality,
		NoCache: cfg.noCache,
	})
	for i, res := range batch {
		results[slots[i]] = res
	}
	return results
}

func (s *serviceImpl) PendingPreloads() []string {
	return s.cache.PendingPreloads()
}

func (s *serviceImpl) Download(ctx context.Context, soundID, url string, onProgress cache.ProgressFunc) (cache.Task, error) {
	return s.cache.Download(ctx, soundID, url, onProgress)
}

func (s *serviceImpl) DownloadTask(soundID string) (cache.Task, bool) {
	return s.cache.Task(soundID)
}

func (s *serviceImpl) Metadata(soundID string) (cache.Entry, bool) {
	return s.cache.Metadata(soundID)
}

func (s *serviceImpl) IsCached(soundID string) bool {
	return s.cache.IsCached(soundID)
}

func (s *serviceImpl) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *serviceImpl) ClearCache() {
	s.cache.Clear()
}

func (s *serviceImpl) Catalog() catalog.Catalog {
	return s.catalog
}

// Destroy tears down playback. Cached entries survive; ClearCache is
// the cache's own reset.
func (s *serviceImpl) Destroy() {
	s.mixer.Destroy()
}
