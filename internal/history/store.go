// Package history keeps a sqlite ledger of queued downloads and syncs it
// against the backend's transfer list.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	dbutil "soulrec/internal/db"
	"soulrec/internal/nicotine"
	"soulrec/internal/playlist"
)

// Status constants for ledger entries.
const (
	StatusQueued      = "queued"
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusCancelled   = "cancelled"
)

// Entry is one queued download.
type Entry struct {
	ID            int64
	PlaylistTitle string
	TrackTitle    string
	TrackArtists  string
	Owner         string
	VirtualPath   string
	FileName      string
	FileSize      int64
	Bitrate       *int
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store provides database operations for the download ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_title TEXT NOT NULL,
			track_title TEXT NOT NULL,
			track_artists TEXT NOT NULL,
			owner TEXT NOT NULL,
			virtual_path TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_size INTEGER NOT NULL,
			bitrate INTEGER,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(owner, virtual_path)
		)`)
	if err != nil {
		return fmt.Errorf("migrate history db: %w", err)
	}
	return nil
}

// Record stores a queued download. Re-queuing the same (owner, virtual path)
// resets its status to queued.
func (s *Store) Record(ctx context.Context, playlistTitle string, track playlist.Track, r nicotine.SearchResult) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (
			playlist_title, track_title, track_artists,
			owner, virtual_path, file_name, file_size, bitrate,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, virtual_path) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		playlistTitle, track.Title, track.ArtistString(),
		r.User, r.FilePath, r.FileName, r.FileSize, dbutil.PtrToNullInt(r.Bitrate),
		StatusQueued, now, now)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}

// List returns all entries, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT id, playlist_title, track_title, track_artists,
		owner, virtual_path, file_name, file_size, bitrate, status, created_at, updated_at
		FROM downloads ORDER BY created_at DESC, id DESC`)
}

// ListActive returns entries still queued or downloading, oldest first.
func (s *Store) ListActive(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT id, playlist_title, track_title, track_artists,
		owner, virtual_path, file_name, file_size, bitrate, status, created_at, updated_at
		FROM downloads WHERE status IN (?, ?) ORDER BY created_at, id`,
		StatusQueued, StatusDownloading)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var bitrate sql.NullInt64
		var created, updated int64
		if err := rows.Scan(&e.ID, &e.PlaylistTitle, &e.TrackTitle, &e.TrackArtists,
			&e.Owner, &e.VirtualPath, &e.FileName, &e.FileSize, &bitrate,
			&e.Status, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Bitrate = dbutil.NullIntToPtr(bitrate)
		e.CreatedAt = time.Unix(created, 0)
		e.UpdatedAt = time.Unix(updated, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateFromBackend synchronizes active entries with the backend's transfer
// list, matching by (owner, virtual path). Entries absent from the backend
// keep their current status.
func (s *Store) UpdateFromBackend(ctx context.Context, transfers []nicotine.DownloadInfo) error {
	type key struct{ owner, path string }
	backend := make(map[key]nicotine.DownloadInfo, len(transfers))
	for _, t := range transfers {
		backend[key{t.Username, t.VirtualPath}] = t
	}

	active, err := s.ListActive(ctx)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		for _, e := range active {
			t, found := backend[key{e.Owner, e.VirtualPath}]
			if !found {
				continue
			}
			status := mapBackendStatus(t.Status)
			if status == e.Status {
				continue
			}
			if _, err := tx.Exec(
				`UPDATE downloads SET status = ?, updated_at = ? WHERE id = ?`,
				status, now, e.ID); err != nil {
				return fmt.Errorf("update history entry %d: %w", e.ID, err)
			}
		}
		return nil
	})
}

func mapBackendStatus(status string) string {
	switch status {
	case "Finished":
		return StatusCompleted
	case "Cancelled":
		return StatusCancelled
	case "Failed":
		return StatusFailed
	case "Queued":
		return StatusQueued
	default:
		return StatusDownloading
	}
}
