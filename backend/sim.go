package backend

import (
	"errors"
	"sync"
	"time"
)

// Verify Sim implements Backend at compile time.
var _ Backend = (*Sim)(nil)

// Sim is a clock-driven Backend with no audio output. Voice positions
// advance with the clock while playing, so headless runs and tests see
// the same transport behavior as the native backend.
type Sim struct {
	mu     sync.Mutex
	now    func() time.Time
	closed bool
}

// NewSim creates a simulator backend on the wall clock.
func NewSim() *Sim {
	return &Sim{now: time.Now}
}

// NewSimWithClock creates a simulator that reads time from now instead
// of the wall clock. Tests use it to drive positions deterministically.
func NewSimWithClock(now func() time.Time) *Sim {
	return &Sim{now: now}
}

// Open creates a silent voice for src.
func (s *Sim) Open(src Source) (Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("sim backend: closed")
	}
	return &simVoice{src: src, now: s.now, volume: src.Volume}, nil
}

// Close shuts the backend down. Open fails afterwards; existing voices
// keep working until released.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type simVoice struct {
	mu  sync.Mutex
	src Source
	now func() time.Time

	playing   bool
	stopped   bool
	released  bool
	elapsed   time.Duration // accumulated across pauses
	startedAt time.Time     // last transition to playing
	volume    float64
}

func (v *simVoice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released || v.stopped {
		return errors.New("sim voice: not playable")
	}
	if v.playing {
		return nil
	}
	v.playing = true
	v.startedAt = v.now()
	return nil
}

func (v *simVoice) Pause() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return errors.New("sim voice: released")
	}
	if !v.playing {
		return nil
	}
	v.elapsed += v.now().Sub(v.startedAt)
	v.playing = false
	return nil
}

func (v *simVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		v.elapsed += v.now().Sub(v.startedAt)
		v.playing = false
	}
	v.stopped = true
	return nil
}

func (v *simVoice) SetVolume(level float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return errors.New("sim voice: released")
	}
	v.volume = level
	return nil
}

// Position returns how far into the source the voice is. Looping
// sources wrap modulo duration; others cap at duration.
func (v *simVoice) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()

	pos := v.elapsed
	if v.playing {
		pos += v.now().Sub(v.startedAt)
	}
	if v.src.Duration <= 0 {
		return pos
	}
	if v.src.Loop {
		return pos % v.src.Duration
	}
	if pos > v.src.Duration {
		return v.src.Duration
	}
	return pos
}

func (v *simVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *simVoice) Release() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		v.elapsed += v.now().Sub(v.startedAt)
		v.playing = false
	}
	v.stopped = true
	v.released = true
	return nil
}

// Volume returns the last level set on the voice.
func (v *simVoice) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}
