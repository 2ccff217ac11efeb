package cache

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/hmalhotra-labs/mindloop-audio/errdefs"
)

// Journal keeps a SQLite record of finished downloads. All methods are
// nil-safe, so a cache without a journal just skips the bookkeeping.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the journal database. An empty path
// places it under the user data home.
func OpenJournal(path string) (*Journal, error) {
	if path == "" {
		p, err := xdg.DataFile(filepath.Join("mindloop-audio", "downloads.db"))
		if err != nil {
			return nil, errdefs.Storagef("resolving journal path: %v", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errdefs.Storagef("creating %s: %v", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errdefs.Storagef("opening journal %s: %v", path, err)
	}
	if err := initJournalSchema(db); err != nil {
		db.Close()
		return nil, errdefs.Storagef("initializing journal %s: %v", path, err)
	}
	return &Journal{db: db}, nil
}

func initJournalSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sound_id TEXT NOT NULL,
			url TEXT NOT NULL,
			status TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_downloads_sound ON downloads(sound_id);
	`)
	return err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends one finished task.
func (j *Journal) Record(t Task) error {
	if j == nil || j.db == nil {
		return nil
	}
	var taskErr sql.NullString
	if t.Err != "" {
		taskErr = sql.NullString{String: t.Err, Valid: true}
	}
	_, err := j.db.Exec(`
		INSERT INTO downloads (sound_id, url, status, bytes, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.SoundID, t.URL, string(t.Status), t.Downloaded, taskErr, t.StartedAt.Unix(), t.EndedAt.Unix())
	return err
}

// JournalEntry is one recorded download.
type JournalEntry struct {
	SoundID   string
	URL       string
	Status    Status
	Bytes     int64
	Err       string
	StartedAt time.Time
	EndedAt   time.Time
}

// History returns the most recent downloads, newest first.
func (j *Journal) History(limit int) ([]JournalEntry, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.Query(`
		SELECT sound_id, url, status, bytes, error, started_at, ended_at
		FROM downloads
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			e       JournalEntry
			status  string
			taskErr sql.NullString
			started int64
			ended   int64
		)
		if err := rows.Scan(&e.SoundID, &e.URL, &status, &e.Bytes, &taskErr, &started, &ended); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		if taskErr.Valid {
			e.Err = taskErr.String
		}
		e.StartedAt = time.Unix(started, 0)
		e.EndedAt = time.Unix(ended, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
