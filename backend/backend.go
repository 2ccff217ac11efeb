// Package backend abstracts the platform audio layer behind a small
// interface, so the engine drives native output and the clock-driven
// simulator through the same calls.
package backend

import "time"

// Source describes one sound for a backend to play.
type Source struct {
	SoundID  string
	Location string // resolved local file path
	Duration time.Duration
	Volume   float64 // initial level, 0.0 to 1.0
	Loop     bool
}

// Voice is one playing instance of a source.
//
// Play starts output, or resumes it after Pause. Stop halts output for
// good; a stopped voice cannot restart. Release frees the voice's
// resources and implies Stop. Voices are not safe for concurrent use;
// the mixer serializes access.
type Voice interface {
	Play() error
	Pause() error
	Stop() error
	SetVolume(level float64) error
	Position() time.Duration
	IsPlaying() bool
	Release() error
}

// Backend opens voices. One backend instance serves all sounds.
type Backend interface {
	Open(src Source) (Voice, error)
	Close() error
}
