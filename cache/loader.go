package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

// Metadata is the result of probing one resource.
type Metadata struct {
	Duration time.Duration
	Size     int64
	Format   string
	Bitrate  int // bits per second
	Location string
}

// Loader resolves a resource path to its metadata. Implementations may
// fetch remote paths to local storage first; Location reports where the
// resource ended up.
type Loader interface {
	Probe(ctx context.Context, soundID, path string) (Metadata, error)
}

// Verify both loaders implement Loader at compile time.
var (
	_ Loader = (*MediaLoader)(nil)
	_ Loader = (*StaticLoader)(nil)
)

// MediaLoader probes real audio files. Remote paths are fetched into
// dir (named after the sound id) and probed locally.
type MediaLoader struct {
	dir    string
	client *http.Client
}

// NewMediaLoader creates a loader that stores fetched files in dir.
func NewMediaLoader(dir string) *MediaLoader {
	return &MediaLoader{dir: dir, client: &http.Client{}}
}

func (l *MediaLoader) Probe(ctx context.Context, soundID, p string) (Metadata, error) {
	local := p
	if u, err := url.Parse(p); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		local, err = l.fetch(ctx, soundID, u)
		if err != nil {
			return Metadata{}, err
		}
	}
	return probeFile(local)
}

// fetch downloads u into the loader's directory. A file fetched earlier
// for the same sound is reused.
func (l *MediaLoader) fetch(ctx context.Context, soundID string, u *url.URL) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", errdefs.Storagef("creating %s: %v", l.dir, err)
	}
	dst := filepath.Join(l.dir, soundID+strings.ToLower(path.Ext(u.Path)))
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errdefs.Validationf("building request for %s: %v", u, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %s", u, resp.Status)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", errdefs.Storagef("creating %s: %v", dst, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dst)
		return "", errdefs.Storagef("writing %s: %v", dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", errdefs.Storagef("closing %s: %v", dst, err)
	}
	return dst, nil
}

func probeFile(p string) (Metadata, error) {
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, errdefs.NotFoundf("resource %s", p)
		}
		return Metadata{}, errdefs.Storagef("stat %s: %v", p, err)
	}

	f, err := os.Open(p)
	if err != nil {
		return Metadata{}, errdefs.Storagef("opening %s: %v", p, err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(p))

	// Container identification from tags when present; not every format
	// carries them, so failure just falls back to the extension.
	format := strings.TrimPrefix(ext, ".")
	if m, err := tag.ReadFrom(f); err == nil {
		format = strings.ToLower(string(m.FileType()))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Metadata{}, errdefs.Storagef("rewinding %s: %v", p, err)
	}

	duration, err := decodeDuration(f, ext)
	if err != nil {
		return Metadata{}, errdefs.UnsupportedFormatf("decoding %s: %v", p, err)
	}

	md := Metadata{
		Duration: duration,
		Size:     fi.Size(),
		Format:   format,
		Location: p,
	}
	if secs := duration.Seconds(); secs > 0 {
		md.Bitrate = int(float64(fi.Size()*8) / secs)
	}
	return md, nil
}

// decodeDuration decodes just enough of the stream to learn its length.
func decodeDuration(f *os.File, ext string) (time.Duration, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		if err := skipID3v2(f); err != nil {
			return 0, err
		}
		streamer, format, err = flac.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		return 0, fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// skipID3v2 positions r after an ID3v2 tag, if one is present. Some
// flac files carry one and the decoder chokes on it.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := r.Read(header)
	if err != nil {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// ID3v2 size is a syncsafe integer in bytes 6-9: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}

// StaticLoader serves metadata from a fixed table. It records probe
// calls and can block on a gate, which makes batch and timeout behavior
// testable.
type StaticLoader struct {
	mu    sync.Mutex
	byID  map[string]Metadata
	errs  map[string]error
	gate  chan struct{}
	calls []string
}

// NewStaticLoader creates an empty static loader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{
		byID: make(map[string]Metadata),
		errs: make(map[string]error),
	}
}

// Set registers the metadata returned for soundID.
func (l *StaticLoader) Set(soundID string, md Metadata) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[soundID] = md
}

// SetError makes probes for soundID fail with err.
func (l *StaticLoader) SetError(soundID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[soundID] = err
}

// SetGate blocks every probe until gate is closed. A nil gate removes
// the block.
func (l *StaticLoader) SetGate(gate chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gate = gate
}

// Calls returns the probed sound ids, in order.
func (l *StaticLoader) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *StaticLoader) Probe(ctx context.Context, soundID, path string) (Metadata, error) {
	l.mu.Lock()
	l.calls = append(l.calls, soundID)
	gate := l.gate
	failure := l.errs[soundID]
	md, ok := l.byID[soundID]
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Metadata{}, ctx.Err()
		}
	}
	if failure != nil {
		return Metadata{}, failure
	}
	if !ok {
		return Metadata{}, errdefs.NotFoundf("no metadata for %q", soundID)
	}
	if md.Location == "" {
		md.Location = path
	}
	return md, nil
}
