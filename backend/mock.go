package backend

import (
	"errors"
	"sync"
	"time"
)

// Verify Mock implements Backend at compile time.
var _ Backend = (*Mock)(nil)

// Mock is a scripted Backend test double. It records every opened
// source and exposes the voices it produced.
type Mock struct {
	mu      sync.Mutex
	opened  []Source
	voices  []*MockVoice
	openErr error
	playErr error
	closed  bool
}

// NewMock creates a new mock backend for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Open(src Source) (Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, src)
	if m.openErr != nil {
		return nil, m.openErr
	}
	v := &MockVoice{src: src, volume: src.Volume, playErr: m.playErr}
	m.voices = append(m.voices, v)
	return v, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// OpenCalls returns the sources passed to Open, in order.
func (m *Mock) OpenCalls() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Source, len(m.opened))
	copy(out, m.opened)
	return out
}

// Voice returns the most recently opened voice for soundID, or nil.
func (m *Mock) Voice(soundID string) *MockVoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.voices) - 1; i >= 0; i-- {
		if m.voices[i].src.SoundID == soundID {
			return m.voices[i]
		}
	}
	return nil
}

// Voices returns every voice opened for soundID, oldest first.
func (m *Mock) Voices(soundID string) []*MockVoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*MockVoice
	for _, v := range m.voices {
		if v.src.SoundID == soundID {
			out = append(out, v)
		}
	}
	return out
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify MockVoice implements Voice at compile time.
var _ Voice = (*MockVoice)(nil)

// MockVoice records the calls made on it.
type MockVoice struct {
	mu      sync.Mutex
	src     Source
	playErr error

	playing  bool
	stopped  bool
	released bool
	volume   float64
	position time.Duration

	playCalls  int
	pauseCalls int
	volumeSets []float64
}

func (v *MockVoice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playCalls++
	if v.playErr != nil {
		return v.playErr
	}
	if v.stopped || v.released {
		return errors.New("mock voice: not playable")
	}
	v.playing = true
	return nil
}

func (v *MockVoice) Pause() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pauseCalls++
	v.playing = false
	return nil
}

func (v *MockVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = false
	v.stopped = true
	return nil
}

func (v *MockVoice) SetVolume(level float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return errors.New("mock voice: released")
	}
	v.volume = level
	v.volumeSets = append(v.volumeSets, level)
	return nil
}

func (v *MockVoice) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

func (v *MockVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *MockVoice) Release() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = false
	v.stopped = true
	v.released = true
	return nil
}

// Test helpers

func (v *MockVoice) Source() Source { return v.src }

func (v *MockVoice) SetPosition(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.position = d
}

func (v *MockVoice) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

func (v *MockVoice) VolumeSets() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]float64, len(v.volumeSets))
	copy(out, v.volumeSets)
	return out
}

func (v *MockVoice) Stopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

func (v *MockVoice) Released() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}

func (v *MockVoice) PlayCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playCalls
}

func (v *MockVoice) PauseCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pauseCalls
}
