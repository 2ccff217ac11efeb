package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Volume.Default != 0.5 {
		t.Errorf("Volume.Default = %v, want 0.5", cfg.Volume.Default)
	}
	if cfg.Tick.Interval != 100*time.Millisecond {
		t.Errorf("Tick.Interval = %v, want 100ms", cfg.Tick.Interval)
	}
	if cfg.Cache.MaxSizeMB != 50 {
		t.Errorf("Cache.MaxSizeMB = %d, want 50", cfg.Cache.MaxSizeMB)
	}
	if cfg.Cache.MaxSizeBytes() != 50<<20 {
		t.Errorf("MaxSizeBytes() = %d, want %d", cfg.Cache.MaxSizeBytes(), 50<<20)
	}
	if cfg.Cache.LoadTimeout != 10*time.Second {
		t.Errorf("Cache.LoadTimeout = %v, want 10s", cfg.Cache.LoadTimeout)
	}
	if cfg.Cache.DownloadGrace != 3*time.Second {
		t.Errorf("Cache.DownloadGrace = %v, want 3s", cfg.Cache.DownloadGrace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[volume]
default = 0.8

[tick]
interval = "250ms"

[cache]
max_size_mb = 10
load_timeout = "2s"
download_dir = "/tmp/mindloop"

[catalog]
path = "/etc/mindloop/sounds.toml"

[log]
level = "debug"
console = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Volume.Default != 0.8 {
		t.Errorf("Volume.Default = %v, want 0.8", cfg.Volume.Default)
	}
	if cfg.Tick.Interval != 250*time.Millisecond {
		t.Errorf("Tick.Interval = %v, want 250ms", cfg.Tick.Interval)
	}
	if cfg.Cache.MaxSizeMB != 10 {
		t.Errorf("Cache.MaxSizeMB = %d, want 10", cfg.Cache.MaxSizeMB)
	}
	if cfg.Cache.LoadTimeout != 2*time.Second {
		t.Errorf("Cache.LoadTimeout = %v, want 2s", cfg.Cache.LoadTimeout)
	}
	if cfg.Cache.DownloadDir != "/tmp/mindloop" {
		t.Errorf("Cache.DownloadDir = %q", cfg.Cache.DownloadDir)
	}
	if cfg.Catalog.Path != "/etc/mindloop/sounds.toml" {
		t.Errorf("Catalog.Path = %q", cfg.Catalog.Path)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Console {
		t.Errorf("Log = %+v, want debug console", cfg.Log)
	}

	// Untouched sections keep their defaults.
	if cfg.Cache.DownloadGrace != 3*time.Second {
		t.Errorf("Cache.DownloadGrace = %v, want the default 3s", cfg.Cache.DownloadGrace)
	}
}

func TestLoad_LastFileWins(t *testing.T) {
	first := writeConfig(t, `
[volume]
default = 0.3

[tick]
interval = "50ms"
`)
	second := writeConfig(t, `
[volume]
default = 0.9
`)

	cfg, err := Load(first, second)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Volume.Default != 0.9 {
		t.Errorf("Volume.Default = %v, want 0.9 (second file)", cfg.Volume.Default)
	}
	if cfg.Tick.Interval != 50*time.Millisecond {
		t.Errorf("Tick.Interval = %v, want 50ms (first file)", cfg.Tick.Interval)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Error("Load() with a missing explicit file succeeded")
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	path := writeConfig(t, "volume = [[[")
	if _, err := Load(path); err == nil {
		t.Error("Load() with broken TOML succeeded")
	}
}

func TestLoad_RejectsBadRanges(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"volume above one", "[volume]\ndefault = 1.5"},
		{"negative volume", "[volume]\ndefault = -0.2"},
		{"zero tick", "[tick]\ninterval = \"0s\""},
		{"zero cache size", "[cache]\nmax_size_mb = 0"},
		{"zero load timeout", "[cache]\nload_timeout = \"0s\""},
		{"negative grace", "[cache]\ndownload_grace = \"-1s\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if !errdefs.IsValidation(err) {
				t.Errorf("Load() error = %v, want validation", err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde expands to home", "~/sounds", filepath.Join(home, "sounds")},
		{"absolute path unchanged", "/var/lib/mindloop", "/var/lib/mindloop"},
		{"relative path unchanged", "sounds/rain.ogg", "sounds/rain.ogg"},
		{"empty string unchanged", "", ""},
		{"tilde only", "~", home},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoad_ExpandsPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	path := writeConfig(t, `
[cache]
download_dir = "~/mindloop/downloads"

[catalog]
path = "~/mindloop/sounds.toml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join(home, "mindloop", "downloads"); cfg.Cache.DownloadDir != want {
		t.Errorf("DownloadDir = %q, want %q", cfg.Cache.DownloadDir, want)
	}
	if want := filepath.Join(home, "mindloop", "sounds.toml"); cfg.Catalog.Path != want {
		t.Errorf("Catalog.Path = %q, want %q", cfg.Catalog.Path, want)
	}
}

func TestDefaultPaths(t *testing.T) {
	paths := defaultPaths()
	if len(paths) == 0 {
		t.Fatal("defaultPaths() returned nothing")
	}
	if last := paths[len(paths)-1]; last != "mindloop-audio.toml" {
		t.Errorf("last path = %q, want mindloop-audio.toml", last)
	}
	if home, err := os.UserHomeDir(); err == nil {
		want := filepath.Join(home, ".config", "mindloop-audio", "config.toml")
		if paths[0] != want {
			t.Errorf("first path = %q, want %q", paths[0], want)
		}
	}
}
