// ABOUTME: SQLite index of locally stored music, the storage collaborator of the music category.
// ABOUTME: Rows are addressed by media://audio/<rowid> identifiers and listed by title.

package medialib

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/777genius/tonepicker/internal/tones"
)

const dbFileName = "media.db"

// Track is one indexed audio file.
type Track struct {
	ID      int64
	Path    string
	Mtime   int64
	Size    int64
	Title   string
	Artist  string
	Album   string
	IsMusic bool
}

// Store is the music index.
type Store struct {
	db *sql.DB
}

var _ tones.MusicStore = (*Store)(nil)

// DefaultPath returns ~/.local/share/tonepicker/media.db (or the platform equivalent).
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join("tonepicker", dbFileName))
}

// Open opens (creating if needed) the index at path. An empty path uses DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the scan serializes writes through a single transaction.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize media index: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS media_tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			mtime INTEGER NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			is_music INTEGER NOT NULL DEFAULT 1,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_media_tracks_title ON media_tracks(title);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Tracks returns music rows (is_music != 0) ordered by title.
func (s *Store) Tracks(ctx context.Context) ([]tones.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, path, size FROM media_tracks
		WHERE is_music != 0
		ORDER BY title ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tones.Row
	for rows.Next() {
		var (
			id  int64
			row tones.Row
		)
		if err := rows.Scan(&id, &row.Title, &row.Path, &row.Size); err != nil {
			return nil, err
		}
		row.ID = tones.MediaID(id)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Title returns the title of a media identifier.
func (s *Store) Title(ctx context.Context, id tones.ID) (string, bool, error) {
	t, err := s.track(ctx, id)
	if errors.Is(err, tones.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return t.Title, true, nil
}

// Resolve returns the file path of a media identifier.
func (s *Store) Resolve(id tones.ID) (string, error) {
	t, err := s.track(context.Background(), id)
	if err != nil {
		return "", err
	}
	return t.Path, nil
}

func (s *Store) track(ctx context.Context, id tones.ID) (*Track, error) {
	rowID, ok := id.MediaRow()
	if !ok {
		return nil, fmt.Errorf("%w: %s", tones.ErrNotFound, id)
	}

	var (
		t       Track
		isMusic int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, mtime, size, title, artist, album, is_music
		FROM media_tracks WHERE id = ?
	`, rowID).Scan(&t.ID, &t.Path, &t.Mtime, &t.Size, &t.Title, &t.Artist, &t.Album, &isMusic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", tones.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	t.IsMusic = isMusic != 0
	return &t, nil
}

// Count returns the number of indexed files and how many of them are music.
func (s *Store) Count(ctx context.Context) (total, music int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_music != 0 THEN 1 ELSE 0 END), 0) FROM media_tracks
	`).Scan(&total, &music)
	return total, music, err
}
