package backend

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

const (
	extMP3  = ".mp3"
	extWAV  = ".wav"
	extFLAC = ".flac"
	extOGG  = ".ogg"
)

// Extensions returns the file extensions the native backend decodes.
func Extensions() []string {
	return []string{extMP3, extWAV, extFLAC, extOGG}
}

// SupportedExtension reports whether the native decoders handle ext.
// The extension must be lowercase and include the dot.
func SupportedExtension(ext string) bool {
	switch ext {
	case extMP3, extWAV, extFLAC, extOGG:
		return true
	}
	return false
}

// The speaker is a process-wide device. It is initialized once, with the
// sample rate of the first opened voice; later voices resample to it.
var (
	speakerMu          sync.Mutex
	speakerInitialized bool
	speakerSampleRate  beep.SampleRate
)

// Verify Beep implements Backend at compile time.
var _ Backend = (*Beep)(nil)

// Beep plays sources on the system audio device using gopxl/beep.
// All voices mix in the speaker; each one carries its own pause control
// and volume effect.
type Beep struct{}

// NewBeep creates the native backend.
func NewBeep() *Beep {
	return &Beep{}
}

// Open decodes src.Location and prepares a voice for it. The voice is
// silent until Play.
func (b *Beep) Open(src Source) (Voice, error) {
	ext := strings.ToLower(filepath.Ext(src.Location))
	if !SupportedExtension(ext) {
		return nil, errdefs.UnsupportedFormatf("extension %q", ext)
	}

	f, err := os.Open(src.Location)
	if err != nil {
		return nil, errdefs.Storagef("opening %s: %v", src.Location, err)
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch ext {
	case extMP3:
		streamer, format, err = mp3.Decode(f)
	case extWAV:
		streamer, format, err = wav.Decode(f)
	case extFLAC:
		streamer, format, err = flac.Decode(f)
	case extOGG:
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, errdefs.UnsupportedFormatf("decoding %s: %v", src.Location, err)
	}

	speakerMu.Lock()
	if !speakerInitialized {
		speakerSampleRate = format.SampleRate
		if err := speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10)); err != nil {
			speakerMu.Unlock()
			streamer.Close()
			f.Close()
			return nil, fmt.Errorf("initializing speaker: %w", err)
		}
		speakerInitialized = true
	}
	sampleRate := speakerSampleRate
	speakerMu.Unlock()

	var playStreamer beep.Streamer = streamer
	if src.Loop {
		playStreamer, err = beep.Loop2(streamer)
		if err != nil {
			streamer.Close()
			f.Close()
			return nil, errdefs.UnsupportedFormatf("looping %s: %v", src.Location, err)
		}
	}
	if format.SampleRate != sampleRate {
		playStreamer = beep.Resample(4, format.SampleRate, sampleRate, playStreamer)
	}

	ctrl := &beep.Ctrl{Streamer: playStreamer, Paused: false}
	vol := &effects.Volume{Streamer: ctrl, Base: 2, Volume: levelToVolume(src.Volume), Silent: false}

	return &beepVoice{
		file:     f,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		volume:   vol,
	}, nil
}

// Close stops every playing voice. The speaker device stays open for
// the lifetime of the process.
func (b *Beep) Close() error {
	speakerMu.Lock()
	initialized := speakerInitialized
	speakerMu.Unlock()
	if initialized {
		speaker.Clear()
	}
	return nil
}

type beepVoice struct {
	mu       sync.Mutex
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	started  bool
	paused   bool
	stopped  bool
	released bool
}

func (v *beepVoice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released || v.stopped {
		return fmt.Errorf("beep voice: not playable")
	}
	if !v.started {
		speaker.Play(v.volume)
		v.started = true
		return nil
	}
	speaker.Lock()
	v.ctrl.Paused = false
	speaker.Unlock()
	v.paused = false
	return nil
}

func (v *beepVoice) Pause() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released || v.stopped || !v.started {
		return nil
	}
	speaker.Lock()
	v.ctrl.Paused = true
	speaker.Unlock()
	v.paused = true
	return nil
}

// Stop detaches the voice from the speaker mixer. The control returns
// drained once its streamer is nil, and the speaker drops it.
func (v *beepVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
	return nil
}

func (v *beepVoice) stopLocked() {
	if v.stopped {
		return
	}
	speaker.Lock()
	v.ctrl.Streamer = nil
	speaker.Unlock()
	v.stopped = true
	v.paused = false
}

func (v *beepVoice) SetVolume(level float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return fmt.Errorf("beep voice: released")
	}
	speaker.Lock()
	v.volume.Volume = levelToVolume(level)
	speaker.Unlock()
	return nil
}

func (v *beepVoice) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return 0
	}
	speaker.Lock()
	pos := v.format.SampleRate.D(v.streamer.Position())
	speaker.Unlock()
	return pos
}

func (v *beepVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started && !v.paused && !v.stopped && !v.released
}

func (v *beepVoice) Release() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	v.stopLocked()
	v.released = true
	err := v.streamer.Close()
	if cerr := v.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// levelToVolume converts a 0.0-1.0 level to beep's logarithmic Volume.
// With base 2, 0 means unchanged, -1 half, -2 quarter. Level 0 maps to
// -10, quiet enough to be inaudible.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
