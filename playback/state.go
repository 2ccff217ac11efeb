package playback

import (
	"time"

	"github.com/hmalhotra-labs/mindloop-audio/mixer"
)

// SoundState is the externally visible state of one active sound.
type SoundState struct {
	SoundID  string
	Playing  bool
	Volume   float64
	Position time.Duration
	Duration time.Duration
	Loop     bool
}

// State is an atomic snapshot of the whole engine, safe to retain: it
// shares nothing with the engine's own bookkeeping.
type State struct {
	Playing      bool
	CurrentSound string
	Volume       float64
	ActiveSounds []string // sorted sound ids
	Sounds       map[string]SoundState
}

func stateFromSnapshot(snap mixer.Snapshot) State {
	st := State{
		Playing:      snap.Playing,
		CurrentSound: snap.CurrentSound,
		Volume:       snap.Volume,
		ActiveSounds: snap.ActiveSounds,
		Sounds:       make(map[string]SoundState, len(snap.Sounds)),
	}
	for id, snd := range snap.Sounds {
		st.Sounds[id] = SoundState{
			SoundID:  snd.SoundID,
			Playing:  snd.Playing,
			Volume:   snd.Volume,
			Position: snd.Position,
			Duration: snd.Duration,
			Loop:     snd.Loop,
		}
	}
	return st
}
