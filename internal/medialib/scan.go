package medialib

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"golang.org/x/sync/errgroup"

	"github.com/777genius/tonepicker/internal/errorhandler"
	"github.com/777genius/tonepicker/internal/logging"
)

const defaultWorkers = 8

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".wav":  true,
	".aiff": true,
	".aif":  true,
}

// Folders whose files are indexed but not listed as music.
var nonMusicFolders = map[string]bool{
	"ringtones":     true,
	"alarms":        true,
	"notifications": true,
	"podcasts":      true,
}

// ScanStats summarizes one Scan.
type ScanStats struct {
	Added     int
	Updated   int
	Removed   int
	Unchanged int
}

type fileInfo struct {
	root  string
	path  string
	mtime int64
	size  int64
}

type trackResult struct {
	file    fileInfo
	title   string
	artist  string
	album   string
	isMusic bool
	isNew   bool
}

// Scan indexes audio files under dirs. Unchanged files (same mtime) are skipped,
// files that vanished from dirs are removed. Rows under a directory that is
// missing are kept until it comes back.
func (s *Store) Scan(ctx context.Context, dirs []string, workers int) (ScanStats, error) {
	if workers <= 0 {
		workers = defaultWorkers
	}

	var stats ScanStats

	files, missing, err := discoverFiles(ctx, dirs)
	if err != nil {
		return stats, err
	}

	existing, err := s.existingTracks(ctx, dirs)
	if err != nil {
		return stats, err
	}

	var (
		mu      sync.Mutex
		results []trackResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	seen := make(map[string]bool, len(files))

	for _, f := range files {
		seen[f.path] = true
		mtime, known := existing[f.path]
		if known && mtime == f.mtime {
			stats.Unchanged++
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := readTrack(f)
			r.isNew = !known
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	var removed []string
	for path := range existing {
		if !seen[path] && !underAny(path, missing) {
			removed = append(removed, path)
		}
	}

	if err := s.apply(ctx, results, removed); err != nil {
		return stats, err
	}

	for _, r := range results {
		if r.isNew {
			stats.Added++
		} else {
			stats.Updated++
		}
	}
	stats.Removed = len(removed)

	logging.Info("Music scan: %d added, %d updated, %d removed, %d unchanged",
		stats.Added, stats.Updated, stats.Removed, stats.Unchanged)
	return stats, nil
}

// discoverFiles walks dirs for audio files and reports the dirs that do not exist.
func discoverFiles(ctx context.Context, dirs []string) (files []fileInfo, missing []string, err error) {
	for _, dir := range dirs {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return err
				}
				return nil // skip unreadable entries below the root
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files = append(files, fileInfo{root: dir, path: path, mtime: info.ModTime().UnixNano(), size: info.Size()})
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				logging.Warn("Music directory not found: %s", dir)
				missing = append(missing, dir)
				continue
			}
			return nil, nil, err
		}
	}
	return files, missing, nil
}

func (s *Store) existingTracks(ctx context.Context, dirs []string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, mtime FROM media_tracks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]int64)
	for rows.Next() {
		var (
			path  string
			mtime int64
		)
		if err := rows.Scan(&path, &mtime); err != nil {
			return nil, err
		}
		if underAny(path, dirs) {
			existing[path] = mtime
		}
	}
	return existing, rows.Err()
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// readTrack reads tag metadata. Files without readable tags are titled by file name.
func readTrack(f fileInfo) trackResult {
	r := trackResult{
		file:    f,
		title:   strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path)),
		isMusic: isMusicPath(f.root, f.path),
	}

	file, err := os.Open(f.path)
	if err != nil {
		logging.Warn("Cannot open %s: %v", f.path, err)
		return r
	}
	defer file.Close()

	m, err := readTags(file, f.path)
	if err != nil {
		logging.Debug("No tags in %s: %v", f.path, err)
		return r
	}

	if title := strings.TrimSpace(m.Title()); title != "" {
		r.title = title
	}
	r.artist = m.Artist()
	r.album = m.Album()
	return r
}

// readTags reads tag metadata. A panic inside the tag parser counts as unreadable tags.
func readTags(r io.ReadSeeker, path string) (m tag.Metadata, err error) {
	defer errorhandler.RecoverError("reading tags of "+path, &err)
	return tag.ReadFrom(r)
}

// isMusicPath reports whether path is music. Only the folders between root and
// the file are considered.
func isMusicPath(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		rel = filepath.Dir(path)
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if nonMusicFolders[strings.ToLower(part)] {
			return false
		}
	}
	return true
}

func (s *Store) apply(ctx context.Context, results []trackResult, removed []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	for _, r := range results {
		isMusic := 0
		if r.isMusic {
			isMusic = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media_tracks (path, mtime, size, title, artist, album, is_music, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				mtime = excluded.mtime,
				size = excluded.size,
				title = excluded.title,
				artist = excluded.artist,
				album = excluded.album,
				is_music = excluded.is_music,
				updated_at = excluded.updated_at
		`, r.file.path, r.file.mtime, r.file.size, r.title, r.artist, r.album, isMusic, now)
		if err != nil {
			return err
		}
	}

	for _, path := range removed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM media_tracks WHERE path = ?`, path); err != nil {
			return err
		}
	}

	return tx.Commit()
}
