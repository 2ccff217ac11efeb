package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

// wavBytes builds a minimal PCM wav file: 16-bit mono at 8kHz, so
// 8000 samples make exactly one second.
func wavBytes(samples int) []byte {
	const sampleRate = 8000
	dataSize := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // frame size
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func writeWAV(t *testing.T, path string, samples int) {
	t.Helper()
	if err := os.WriteFile(path, wavBytes(samples), 0o644); err != nil {
		t.Fatalf("writing wav: %v", err)
	}
}

func TestMediaLoaderProbesLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 8000)

	l := NewMediaLoader(t.TempDir())
	md, err := l.Probe(context.Background(), "tone", path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if md.Duration != time.Second {
		t.Errorf("Duration = %v, want %v", md.Duration, time.Second)
	}
	if md.Format != "wav" {
		t.Errorf("Format = %q, want %q", md.Format, "wav")
	}
	if want := int64(len(wavBytes(8000))); md.Size != want {
		t.Errorf("Size = %d, want %d", md.Size, want)
	}
	if md.Bitrate <= 0 {
		t.Errorf("Bitrate = %d, want > 0", md.Bitrate)
	}
	if md.Location != path {
		t.Errorf("Location = %q, want %q", md.Location, path)
	}
}

func TestMediaLoaderFetchesRemoteOnce(t *testing.T) {
	payload := wavBytes(8000)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	l := NewMediaLoader(dir)

	md, err := l.Probe(context.Background(), "tone", srv.URL+"/tone.wav")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if want := filepath.Join(dir, "tone.wav"); md.Location != want {
		t.Errorf("Location = %q, want %q", md.Location, want)
	}
	if md.Duration != time.Second {
		t.Errorf("Duration = %v, want %v", md.Duration, time.Second)
	}

	// The fetched file is reused on the next probe.
	if _, err := l.Probe(context.Background(), "tone", srv.URL+"/tone.wav"); err != nil {
		t.Fatalf("second Probe() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestMediaLoaderRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	l := NewMediaLoader(t.TempDir())
	if _, err := l.Probe(context.Background(), "tone", srv.URL+"/tone.mp3"); err == nil {
		t.Fatal("Probe() with failing server succeeded")
	}
}

func TestMediaLoaderMissingFile(t *testing.T) {
	l := NewMediaLoader(t.TempDir())
	_, err := l.Probe(context.Background(), "tone", filepath.Join(t.TempDir(), "gone.mp3"))
	if !errdefs.IsNotFound(err) {
		t.Errorf("Probe() error = %v, want not found", err)
	}
}

func TestMediaLoaderUndecodableFile(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"garbage wav", "noise.wav"},
		{"wrong extension", "notes.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte("not audio at all"), 0o644); err != nil {
				t.Fatal(err)
			}

			l := NewMediaLoader(t.TempDir())
			_, err := l.Probe(context.Background(), "noise", path)
			if !errdefs.IsUnsupportedFormat(err) {
				t.Errorf("Probe() error = %v, want unsupported format", err)
			}
		})
	}
}

func TestStaticLoaderMissingID(t *testing.T) {
	l := NewStaticLoader()
	_, err := l.Probe(context.Background(), "rain", "sounds/rain.ogg")
	if !errdefs.IsNotFound(err) {
		t.Errorf("Probe() error = %v, want not found", err)
	}
	if calls := l.Calls(); len(calls) != 1 || calls[0] != "rain" {
		t.Errorf("Calls() = %v, want [rain]", calls)
	}
}

func TestStaticLoaderDefaultsLocation(t *testing.T) {
	l := NewStaticLoader()
	l.Set("rain", Metadata{Size: 10})

	md, err := l.Probe(context.Background(), "rain", "sounds/rain.ogg")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if md.Location != "sounds/rain.ogg" {
		t.Errorf("Location = %q, want the probed path", md.Location)
	}
}

func TestStaticLoaderGateHonorsContext(t *testing.T) {
	l := NewStaticLoader()
	l.Set("rain", Metadata{Size: 10})
	l.SetGate(make(chan struct{})) // never opened

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Probe(ctx, "rain", "sounds/rain.ogg")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Probe() error = %v, want deadline exceeded", err)
	}
}
