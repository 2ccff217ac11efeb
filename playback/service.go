package playback

import (
	"context"
	"time"

	"github.com/hmalhotra-labs/mindloop-audio/cache"
	"github.com/hmalhotra-labs/mindloop-audio/catalog"
)

// Service is the engine facade: one surface for playing catalog sounds,
// caching their resources and watching downloads. All mutation flows
// through it; embedders never touch the mixer or the cache directly.
type Service interface {
	// Playback control
	Play(ctx context.Context, soundID string, opts ...PlayOption) error
	Pause() error
	Resume() error
	PauseSound(soundID string) bool
	ResumeSound(soundID string) bool
	Stop() error
	StopSound(soundID string) bool

	// Volume control
	SetVolume(v float64) error
	SetSoundVolume(soundID string, v float64) error
	Volume() float64

	// State queries
	State() State
	IsPlaying() bool
	IsSoundPlaying(soundID string) bool
	CurrentSound() string
	SoundTime(soundID string) (time.Duration, bool)

	// Cache and downloads
	Preload(ctx context.Context, soundIDs []string, opts ...PlayOption) []cache.PreloadResult
	PendingPreloads() []string
	Download(ctx context.Context, soundID, url string, onProgress cache.ProgressFunc) (cache.Task, error)
	DownloadTask(soundID string) (cache.Task, bool)
	Metadata(soundID string) (cache.Entry, bool)
	IsCached(soundID string) bool
	CacheStats() cache.Stats
	ClearCache()

	// Catalog access (for listing surfaces)
	Catalog() catalog.Catalog

	// Lifecycle
	Destroy()
}
