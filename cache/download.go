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
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hmalhotra-labs/mindloop-audio/backend"
	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
	"github.com/hmalhotra-labs/mindloop-audio/internal/logger"
)

// Status values for download tasks.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusPaused      Status = "paused"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task tracks one download. At most one task per sound id is in flight;
// finished tasks stay readable for a grace period, then disappear.
type Task struct {
	SoundID    string
	URL        string
	Status     Status
	Progress   int // percent, 0-100
	Downloaded int64
	Total      int64
	Location   string // final file path once completed
	Err        string
	StartedAt  time.Time
	EndedAt    time.Time
}

// ProgressFunc receives task snapshots as a download advances. The
// percent never decreases; 100 is reported exactly once, on completion.
type ProgressFunc func(Task)

// Download transfers url into the download directory, reporting
// progress through onProgress. A second call for a sound id whose task
// is still in flight fails with the duplicate-operation kind.
func (c *FileCache) Download(ctx context.Context, soundID, rawURL string, onProgress ProgressFunc) (Task, error) {
	if soundID == "" {
		return Task{}, errdefs.Validationf("empty sound id")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Task{}, errdefs.Validationf("download url %q is not an http(s) url", rawURL)
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if !backend.SupportedExtension(ext) {
		return Task{}, errdefs.UnsupportedFormatf("url %q: extension %q not in %v", rawURL, ext, backend.Extensions())
	}

	task := Task{
		SoundID:   soundID,
		URL:       rawURL,
		Status:    StatusDownloading,
		StartedAt: time.Now(),
	}

	// Claim the sound id. A terminal task still inside its grace period
	// does not count as in flight.
	c.dlMu.Lock()
	if v, ok := c.tasks.Get(soundID); ok {
		if existing := v.(Task); !existing.Status.Terminal() {
			c.dlMu.Unlock()
			return Task{}, errdefs.DuplicateOperationf("download for %q already in flight", soundID)
		}
	}
	c.tasks.Set(soundID, task, gocache.NoExpiration)
	c.dlMu.Unlock()

	err = c.transfer(ctx, &task, ext, onProgress)
	task.EndedAt = time.Now()
	if err != nil {
		task.Status = StatusFailed
		task.Err = err.Error()
		logger.Warn("download failed",
			logger.String("sound", soundID),
			logger.String("url", rawURL),
			logger.Err(err))
	} else {
		task.Status = StatusCompleted
		task.Progress = 100
		logger.Info("download completed",
			logger.String("sound", soundID),
			logger.Int64("bytes", task.Downloaded),
			logger.String("file", task.Location))
	}

	// Keep the terminal task readable for the grace period, then let
	// the registry janitor remove it.
	c.tasks.Set(soundID, task, c.grace)

	if jerr := c.journal.Record(task); jerr != nil {
		logger.Warn("download journal write failed", logger.Err(jerr))
	}
	if onProgress != nil {
		onProgress(task)
	}
	return task, err
}

// Task returns the live or recently finished download task for id.
func (c *FileCache) Task(soundID string) (Task, bool) {
	if v, ok := c.tasks.Get(soundID); ok {
		return v.(Task), true
	}
	return Task{}, false
}

// transfer runs the HTTP download, updating task in place. Progress is
// capped at 99 so only completion reports 100.
func (c *FileCache) transfer(ctx context.Context, task *Task, ext string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return errdefs.Validationf("building request for %q: %v", task.URL, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %q: %w", task.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %q: unexpected status %s", task.URL, resp.Status)
	}
	if resp.ContentLength > 0 {
		task.Total = resp.ContentLength
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errdefs.Storagef("creating %s: %v", c.dir, err)
	}
	dst := filepath.Join(c.dir, task.SoundID+ext)
	f, err := os.Create(dst)
	if err != nil {
		return errdefs.Storagef("creating %s: %v", dst, err)
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				os.Remove(dst)
				return errdefs.Storagef("writing %s: %v", dst, werr)
			}
			task.Downloaded += int64(n)
			if pct := transferPercent(task.Downloaded, task.Total); pct > task.Progress {
				task.Progress = pct
				if onProgress != nil {
					onProgress(*task)
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			os.Remove(dst)
			return fmt.Errorf("reading %q: %w", task.URL, rerr)
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(dst)
		return errdefs.Storagef("closing %s: %v", dst, err)
	}
	task.Location = dst
	return nil
}

func transferPercent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(done * 100 / total)
	if pct > 99 {
		pct = 99
	}
	return pct
}
