package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hmalhotra-labs/mindloop-audio/cache"
	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
	"github.com/hmalhotra-labs/mindloop-audio/mixer"
)

// Config carries every tunable of the engine.
type Config struct {
	Volume  VolumeConfig  `koanf:"volume"`
	Tick    TickConfig    `koanf:"tick"`
	Cache   CacheConfig   `koanf:"cache"`
	Catalog CatalogConfig `koanf:"catalog"`
	Log     LogConfig     `koanf:"log"`
}

// VolumeConfig sets the global volume baseline.
type VolumeConfig struct {
	Default float64 `koanf:"default"` // 0.0 to 1.0
}

// TickConfig sets the position bookkeeping cadence.
type TickConfig struct {
	Interval time.Duration `koanf:"interval"` // duration string, e.g. "100ms"
}

// CacheConfig sets the resource cache budget and download behavior.
type CacheConfig struct {
	MaxSizeMB     int           `koanf:"max_size_mb"`
	LoadTimeout   time.Duration `koanf:"load_timeout"`
	DownloadDir   string        `koanf:"download_dir"` // empty means the cache's xdg default
	DownloadGrace time.Duration `koanf:"download_grace"`
}

// MaxSizeBytes returns the cache budget in bytes.
func (c CacheConfig) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMB) << 20
}

// CatalogConfig points at the TOML sound catalog.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// LogConfig mirrors the logger's knobs.
type LogConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
	Console    bool   `koanf:"console"`
}

// Default returns the engine's built-in tuning.
func Default() Config {
	return Config{
		Volume: VolumeConfig{Default: mixer.DefaultVolume},
		Tick:   TickConfig{Interval: mixer.DefaultTickInterval},
		Cache: CacheConfig{
			MaxSizeMB:     int(cache.DefaultMaxSize >> 20),
			LoadTimeout:   cache.DefaultLoadTimeout,
			DownloadGrace: cache.DefaultDownloadGrace,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads TOML files over the defaults, last file winning. With no
// arguments the default locations are tried and missing ones skipped;
// explicitly named files must exist.
func Load(paths ...string) (Config, error) {
	k := koanf.New(".")

	explicit := len(paths) > 0
	if !explicit {
		paths = defaultPaths()
	}
	for _, path := range paths {
		path = expandPath(path)
		if !explicit {
			if _, err := os.Stat(path); err != nil {
				continue
			}
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, errdefs.Validationf("loading %s: %v", path, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errdefs.Validationf("parsing configuration: %v", err)
	}

	cfg.Cache.DownloadDir = expandPath(cfg.Cache.DownloadDir)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the ranges the engine depends on.
func (c Config) Validate() error {
	if c.Volume.Default < 0 || c.Volume.Default > 1 {
		return errdefs.Validationf("volume.default %v out of range [0,1]", c.Volume.Default)
	}
	if c.Tick.Interval <= 0 {
		return errdefs.Validationf("tick.interval must be positive, got %v", c.Tick.Interval)
	}
	if c.Cache.MaxSizeMB <= 0 {
		return errdefs.Validationf("cache.max_size_mb must be positive, got %d", c.Cache.MaxSizeMB)
	}
	if c.Cache.LoadTimeout <= 0 {
		return errdefs.Validationf("cache.load_timeout must be positive, got %v", c.Cache.LoadTimeout)
	}
	if c.Cache.DownloadGrace < 0 {
		return errdefs.Validationf("cache.download_grace must not be negative, got %v", c.Cache.DownloadGrace)
	}
	return nil
}

func defaultPaths() []string {
	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mindloop-audio", "config.toml"))
	}
	paths = append(paths, "mindloop-audio.toml")
	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
