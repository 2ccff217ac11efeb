// Package mixer is the playback engine. It owns the active-sound set,
// mixes sounds through backend voices, advances positions on one shared
// tick, and exposes transport and volume control per sound and globally.
package mixer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hmalhotra-labs/mindloop-audio/backend"
	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
	"github.com/hmalhotra-labs/mindloop-audio/internal/logger"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultVolume       = 0.5
)

// Options configure a Mixer.
type Options struct {
	// TickInterval is the position-tracking granularity. Zero or
	// negative means DefaultTickInterval.
	TickInterval time.Duration
	// DefaultVolume is the global volume baseline after construction
	// and after Destroy. Zero or negative means DefaultVolume.
	DefaultVolume float64
}

type activeSound struct {
	voice    backend.Voice
	playing  bool
	volume   float64
	tuned    bool // adjusted individually since the last global volume change
	loop     bool
	duration time.Duration
	position time.Duration
	seq      uint64 // start order, newest wins the current pointer
}

// Mixer mixes ambient sounds. An entry exists in the active set iff the
// sound is playing or paused. All methods are safe for concurrent use.
type Mixer struct {
	mu       sync.RWMutex
	backend  backend.Backend
	sounds   map[string]*activeSound
	current  string
	volume   float64
	interval time.Duration
	baseline float64 // configured default volume
	nextSeq  uint64

	// tickStop is non-nil exactly while the shared tick goroutine runs.
	tickStop chan struct{}
}

// New creates a mixer on top of b.
func New(b backend.Backend, opts Options) *Mixer {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	baseline := opts.DefaultVolume
	if baseline <= 0 {
		baseline = DefaultVolume
	}
	return &Mixer{
		backend:  b,
		sounds:   make(map[string]*activeSound),
		volume:   baseline,
		interval: interval,
		baseline: baseline,
	}
}

// Play starts src, mixing it with whatever is already active. Playing an
// id that is already active restarts it from position zero. The sound
// becomes the current one, and the shared tick starts if it is not
// running.
func (m *Mixer) Play(src backend.Source) error {
	if src.Volume < 0 || src.Volume > 1 {
		return errdefs.Validationf("volume %v out of range [0,1]", src.Volume)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Open the replacement before releasing the old voice, so a failed
	// restart leaves the previous instance playing.
	voice, err := m.backend.Open(src)
	if err != nil {
		return fmt.Errorf("opening voice for %q: %w", src.SoundID, err)
	}
	if err := voice.Play(); err != nil {
		_ = voice.Release()
		return fmt.Errorf("starting %q: %w", src.SoundID, err)
	}

	if old, ok := m.sounds[src.SoundID]; ok {
		_ = old.voice.Stop()
		_ = old.voice.Release()
	}

	m.nextSeq++
	m.sounds[src.SoundID] = &activeSound{
		voice:    voice,
		playing:  true,
		volume:   src.Volume,
		loop:     src.Loop,
		duration: src.Duration,
		seq:      m.nextSeq,
	}
	m.current = src.SoundID
	m.startTickLocked()

	logger.Debug("sound started",
		logger.String("sound", src.SoundID),
		logger.Float64("volume", src.Volume),
		logger.Int("active", len(m.sounds)))
	return nil
}

// Pause pauses every playing sound. Entries stay active and resumable.
func (m *Mixer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, snd := range m.sounds {
		if !snd.playing {
			continue
		}
		if err := snd.voice.Pause(); err != nil && firstErr == nil {
			firstErr = err
		}
		snd.playing = false
	}
	m.stopTickLocked()
	return firstErr
}

// Resume resumes every paused sound and restarts the tick if anything
// is active.
func (m *Mixer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	resumed := false
	for _, snd := range m.sounds {
		if snd.playing {
			continue
		}
		if err := snd.voice.Play(); err != nil && firstErr == nil {
			firstErr = err
		}
		snd.playing = true
		resumed = true
	}
	if resumed {
		m.startTickLocked()
	}
	return firstErr
}

// PauseSound pauses one sound. It reports whether the id was active.
func (m *Mixer) PauseSound(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	snd, ok := m.sounds[id]
	if !ok {
		return false
	}
	if snd.playing {
		_ = snd.voice.Pause()
		snd.playing = false
	}
	if m.playingCountLocked() == 0 {
		m.stopTickLocked()
	}
	return true
}

// ResumeSound resumes one sound. It reports whether the id was active.
func (m *Mixer) ResumeSound(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	snd, ok := m.sounds[id]
	if !ok {
		return false
	}
	if !snd.playing {
		_ = snd.voice.Play()
		snd.playing = true
		m.startTickLocked()
	}
	return true
}

// Stop removes every active sound and cancels the tick.
func (m *Mixer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, snd := range m.sounds {
		_ = snd.voice.Stop()
		if err := snd.voice.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.sounds, id)
	}
	m.current = ""
	m.stopTickLocked()

	logger.Debug("all sounds stopped")
	return firstErr
}

// StopSound removes one sound. It reports whether the id was active;
// stopping an unknown id is not an error. If the removed sound was the
// current one, the most recently started remaining sound takes over.
func (m *Mixer) StopSound(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	snd, ok := m.sounds[id]
	if !ok {
		return false
	}
	_ = snd.voice.Stop()
	_ = snd.voice.Release()
	delete(m.sounds, id)

	if m.current == id {
		m.current = ""
		var latest uint64
		for rid, rs := range m.sounds {
			if rs.seq > latest {
				latest = rs.seq
				m.current = rid
			}
		}
	}
	if m.playingCountLocked() == 0 {
		m.stopTickLocked()
	}

	logger.Debug("sound stopped",
		logger.String("sound", id),
		logger.Int("active", len(m.sounds)))
	return true
}

// SetVolume sets the global baseline. It applies to every sound that
// has not been individually tuned since the previous global change, and
// resets all tuned flags, so the next global change applies everywhere.
func (m *Mixer) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return errdefs.Validationf("volume %v out of range [0,1]", v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.volume = v
	for _, snd := range m.sounds {
		if !snd.tuned {
			_ = snd.voice.SetVolume(v)
			snd.volume = v
		}
		snd.tuned = false
	}
	return nil
}

// SetSoundVolume sets one sound's volume and marks it tuned, shielding
// it from the next global volume change.
func (m *Mixer) SetSoundVolume(id string, v float64) error {
	if v < 0 || v > 1 {
		return errdefs.Validationf("volume %v out of range [0,1]", v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snd, ok := m.sounds[id]
	if !ok {
		return errdefs.NotFoundf("sound %q is not active", id)
	}
	if err := snd.voice.SetVolume(v); err != nil {
		return err
	}
	snd.volume = v
	snd.tuned = true
	return nil
}

// Volume returns the global baseline volume.
func (m *Mixer) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// IsPlaying reports whether any sound is in the playing state.
func (m *Mixer) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playingCountLocked() > 0
}

// IsSoundPlaying reports whether id is active and playing.
func (m *Mixer) IsSoundPlaying(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snd, ok := m.sounds[id]
	return ok && snd.playing
}

// Current returns the id of the most recently started sound, or "".
func (m *Mixer) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SoundTime returns the playback position of an active sound.
func (m *Mixer) SoundTime(id string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snd, ok := m.sounds[id]
	if !ok {
		return 0, false
	}
	return snd.position, true
}

// State returns an atomic snapshot of the engine.
func (m *Mixer) State() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Playing:      m.playingCountLocked() > 0,
		CurrentSound: m.current,
		Volume:       m.volume,
		ActiveSounds: make([]string, 0, len(m.sounds)),
		Sounds:       make(map[string]SoundState, len(m.sounds)),
	}
	for id, snd := range m.sounds {
		snap.ActiveSounds = append(snap.ActiveSounds, id)
		snap.Sounds[id] = SoundState{
			SoundID:  id,
			Playing:  snd.playing,
			Volume:   snd.volume,
			Position: snd.position,
			Duration: snd.duration,
			Loop:     snd.loop,
		}
	}
	sort.Strings(snap.ActiveSounds)
	return snap
}

// Destroy removes every sound, cancels the tick, and resets the global
// volume to the configured default. The mixer stays usable. Safe to
// call repeatedly.
func (m *Mixer) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, snd := range m.sounds {
		_ = snd.voice.Stop()
		_ = snd.voice.Release()
		delete(m.sounds, id)
	}
	m.current = ""
	m.volume = m.baseline
	m.stopTickLocked()

	logger.Debug("mixer destroyed")
}

func (m *Mixer) playingCountLocked() int {
	n := 0
	for _, snd := range m.sounds {
		if snd.playing {
			n++
		}
	}
	return n
}

// Tick lifecycle. The goroutine starts when the playing count leaves
// zero and stops when it returns to zero, either through a transport
// call or through its own pass seeing nothing left to advance.

func (m *Mixer) startTickLocked() {
	if m.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	m.tickStop = stop
	go m.run(stop)
	logger.Debug("tick started", logger.Duration("interval", m.interval))
}

func (m *Mixer) stopTickLocked() {
	if m.tickStop == nil {
		return
	}
	close(m.tickStop)
	m.tickStop = nil
	logger.Debug("tick stopped")
}

func (m *Mixer) run(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !m.tickPass(stop) {
				return
			}
		}
	}
}

// tickPass advances every playing sound by one interval. New positions
// are computed from a single consistent scan and applied afterwards, so
// a concurrent State read sees either the whole pass or none of it. It
// returns false when this goroutine should exit.
func (m *Mixer) tickPass(stop chan struct{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tickStop != stop {
		return false
	}

	type update struct {
		snd *activeSound
		pos time.Duration
	}
	updates := make([]update, 0, len(m.sounds))
	playing := 0
	for _, snd := range m.sounds {
		if !snd.playing {
			continue
		}
		playing++
		pos := snd.position + m.interval
		if snd.duration > 0 && pos >= snd.duration {
			if snd.loop {
				pos = 0
			} else {
				pos = snd.duration
			}
		}
		updates = append(updates, update{snd, pos})
	}
	for _, u := range updates {
		u.snd.position = u.pos
	}

	if playing == 0 {
		m.tickStop = nil
		logger.Debug("tick stopped")
		return false
	}
	return true
}
