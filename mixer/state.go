package mixer

import "time"

// SoundState is the externally visible state of one active sound.
type SoundState struct {
	SoundID  string
	Playing  bool
	Volume   float64
	Position time.Duration
	Duration time.Duration
	Loop     bool
}

// Snapshot is an atomic view of the whole engine, taken under one lock
// so a polling consumer never tears reads across fields.
type Snapshot struct {
	Playing      bool
	CurrentSound string
	Volume       float64
	ActiveSounds []string // sorted sound ids
	Sounds       map[string]SoundState
}
