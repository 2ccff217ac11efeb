package cmd

import (
	"fmt"

	"github.com/hmalhotra-labs/mindloop-audio/backend"
	"github.com/hmalhotra-labs/mindloop-audio/cache"
	"github.com/hmalhotra-labs/mindloop-audio/catalog"
	"github.com/hmalhotra-labs/mindloop-audio/config"
	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
	"github.com/hmalhotra-labs/mindloop-audio/internal/logger"
	"github.com/hmalhotra-labs/mindloop-audio/mixer"
	"github.com/hmalhotra-labs/mindloop-audio/playback"
)

// newService assembles the engine the way an embedding app would. The
// returned closer tears everything down.
func newService(cfg config.Config, backendName string, requireCatalog bool) (playback.Service, func(), error) {
	cat, err := engineCatalog(cfg, requireCatalog)
	if err != nil {
		return nil, nil, err
	}

	var b backend.Backend
	switch backendName {
	case "", "sim":
		b = backend.NewSim()
	case "beep":
		b = backend.NewBeep()
	default:
		return nil, nil, errdefs.Validationf("unknown backend %q (want sim or beep)", backendName)
	}

	journal, err := cache.OpenJournal("")
	if err != nil {
		logger.Warn("download journal unavailable", logger.Err(err))
		journal = nil
	}

	dir := cfg.Cache.DownloadDir
	if dir == "" {
		dir = cache.DefaultDownloadDir()
	}
	fc := cache.New(cache.NewMediaLoader(dir), cache.Options{
		MaxSize:       cfg.Cache.MaxSizeBytes(),
		LoadTimeout:   cfg.Cache.LoadTimeout,
		DownloadDir:   dir,
		DownloadGrace: cfg.Cache.DownloadGrace,
		Journal:       journal,
	})

	mx := mixer.New(b, mixer.Options{
		TickInterval:  cfg.Tick.Interval,
		DefaultVolume: cfg.Volume.Default,
	})

	svc := playback.New(cat, fc, mx)
	closer := func() {
		svc.Destroy()
		if err := b.Close(); err != nil {
			logger.Warn("backend close failed", logger.Err(err))
		}
		if err := journal.Close(); err != nil {
			logger.Warn("journal close failed", logger.Err(err))
		}
	}
	return svc, closer, nil
}

// engineCatalog loads the configured catalog. Commands that never play
// catalog sounds run fine with an empty one.
func engineCatalog(cfg config.Config, required bool) (catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		if required {
			return nil, errdefs.Validationf("no catalog configured; set catalog.path in the config file")
		}
		return catalog.NewStatic()
	}
	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return cat, nil
}
