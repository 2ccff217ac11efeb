package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

type soundsFile struct {
	Sounds []soundEntry `koanf:"sounds"`
}

type soundEntry struct {
	ID       string   `koanf:"id"`
	Path     string   `koanf:"path"`
	Duration string   `koanf:"duration"` // time.ParseDuration format, e.g. "2m30s"
	Volume   *float64 `koanf:"volume"`
	Quality  string   `koanf:"quality"` // "low", "medium", or "high"
	Loop     *bool    `koanf:"loop"`
}

// LoadFile reads a TOML sound catalog made of [[sounds]] tables.
//
// Absent fields get the ambient defaults: volume 0.5, quality medium,
// loop true.
func LoadFile(path string) (*Static, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errdefs.NotFoundf("catalog file %s", path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, errdefs.Storagef("reading catalog %s: %v", path, err)
	}

	var raw soundsFile
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, errdefs.Validationf("catalog %s: %v", path, err)
	}

	sounds := make([]Descriptor, 0, len(raw.Sounds))
	for _, e := range raw.Sounds {
		d, err := e.descriptor()
		if err != nil {
			return nil, err
		}
		sounds = append(sounds, d)
	}

	return NewStatic(sounds...)
}

func (e soundEntry) descriptor() (Descriptor, error) {
	d := Descriptor{
		ID:            e.ID,
		Path:          e.Path,
		DefaultVolume: DefaultVolume,
		Quality:       TierMedium,
		Loop:          true,
	}

	if e.Duration != "" {
		dur, err := time.ParseDuration(e.Duration)
		if err != nil {
			return Descriptor{}, errdefs.Validationf("sound %q: bad duration %q", e.ID, e.Duration)
		}
		d.Duration = dur
	}
	if e.Volume != nil {
		d.DefaultVolume = *e.Volume
	}
	if e.Quality != "" {
		tier, err := ParseTier(e.Quality)
		if err != nil {
			return Descriptor{}, fmt.Errorf("sound %q: %w", e.ID, err)
		}
		d.Quality = tier
	}
	if e.Loop != nil {
		d.Loop = *e.Loop
	}

	return d, nil
}
