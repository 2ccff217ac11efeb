package playback

import "github.com/hmalhotra-labs/mindloop-audio/catalog"

type playConfig struct {
	volume    float64
	hasVolume bool
	quality   catalog.Tier
	noCache   bool
}

// PlayOption adjusts one Play or Preload call.
type PlayOption func(*playConfig)

// WithVolume plays the sound at v instead of the catalog default.
func WithVolume(v float64) PlayOption {
	return func(c *playConfig) {
		c.volume = v
		c.hasVolume = true
	}
}

// WithQuality requests a quality tier. Cached size and bitrate are
// scaled relative to the tier the source comes in.
func WithQuality(q catalog.Tier) PlayOption {
	return func(c *playConfig) {
		c.quality = q
	}
}

// WithoutCache loads the resource without storing its entry.
func WithoutCache() PlayOption {
	return func(c *playConfig) {
		c.noCache = true
	}
}
