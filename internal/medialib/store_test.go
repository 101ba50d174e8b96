package medialib

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/777genius/tonepicker/internal/tones"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "media.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// id3v2Title builds a minimal ID3v2.3 tag holding a single TIT2 frame.
func id3v2Title(title string) []byte {
	payload := append([]byte{0x00}, []byte(title)...) // ISO-8859-1 text

	var frame bytes.Buffer
	frame.WriteString("TIT2")
	_ = binary.Write(&frame, binary.BigEndian, uint32(len(payload)))
	frame.Write([]byte{0x00, 0x00})
	frame.Write(payload)

	size := frame.Len()
	var buf bytes.Buffer
	buf.WriteString("ID3")
	buf.Write([]byte{0x03, 0x00, 0x00})
	buf.Write([]byte{
		byte(size >> 21 & 0x7f),
		byte(size >> 14 & 0x7f),
		byte(size >> 7 & 0x7f),
		byte(size & 0x7f),
	})
	buf.Write(frame.Bytes())
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func trackTitles(rows []tones.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Title)
	}
	return out
}

func TestScan_IndexesAndSortsByTitle(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	writeFile(t, filepath.Join(dir, "01-track.mp3"), id3v2Title("Yesterday"))
	writeFile(t, filepath.Join(dir, "Blackbird.flac"), []byte("not really flac"))
	writeFile(t, filepath.Join(dir, "album", "Across.ogg"), []byte("ogg"))
	writeFile(t, filepath.Join(dir, "cover.jpg"), []byte("jpg"))
	writeFile(t, filepath.Join(dir, "Ringtones", "Marimba.mp3"), []byte("mp3"))

	stats, err := s.Scan(ctx, []string{dir}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Added)
	assert.Equal(t, 0, stats.Updated)

	rows, err := s.Tracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Across", "Blackbird", "Yesterday"}, trackTitles(rows),
		"music only, lexicographic by title")

	total, music, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 3, music)
}

func TestScan_Incremental(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	keep := filepath.Join(dir, "Keep.mp3")
	change := filepath.Join(dir, "Change.mp3")
	gone := filepath.Join(dir, "Gone.mp3")
	writeFile(t, keep, []byte("a"))
	writeFile(t, change, []byte("b"))
	writeFile(t, gone, []byte("c"))

	_, err := s.Scan(ctx, []string{dir}, 0)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))
	writeFile(t, change, id3v2Title("Changed Title"))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(change, future, future))
	writeFile(t, filepath.Join(dir, "New.mp3"), []byte("d"))

	stats, err := s.Scan(ctx, []string{dir}, 0)
	require.NoError(t, err)
	assert.Equal(t, ScanStats{Added: 1, Updated: 1, Removed: 1, Unchanged: 1}, stats)

	rows, err := s.Tracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Changed Title", "Keep", "New"}, trackTitles(rows))
}

func TestScan_MissingDirIsSkipped(t *testing.T) {
	s := openTestStore(t)
	stats, err := s.Scan(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}, 1)
	require.NoError(t, err)
	assert.Equal(t, ScanStats{}, stats)
}

func TestScan_Cancelled(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, []string{dir}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTitleAndResolve(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	ctx := context.Background()
	path := filepath.Join(dir, "Song.mp3")
	writeFile(t, path, id3v2Title("Hey Jude"))

	_, err := s.Scan(ctx, []string{dir}, 1)
	require.NoError(t, err)

	rows, err := s.Tracks(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id := rows[0].ID

	title, ok, err := s.Title(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Hey Jude", title)

	got, err := s.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	track, err := s.track(ctx, id)
	require.NoError(t, err)
	assert.True(t, track.IsMusic)
	assert.Equal(t, int64(len(id3v2Title("Hey Jude"))), track.Size)

	_, ok, err = s.Title(ctx, tones.MediaID(9999))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Resolve(tones.FileID(path))
	assert.ErrorIs(t, err, tones.ErrNotFound)
}

func TestAccess(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, Access([]string{dir})())
	assert.False(t, Access(nil)())
	assert.False(t, Access([]string{dir, filepath.Join(dir, "missing")})())
}

func TestIsMusicPath(t *testing.T) {
	root := filepath.FromSlash("/home/u/Music")

	assert.True(t, isMusicPath(root, filepath.Join(root, "Beatles", "Help.mp3")))
	assert.False(t, isMusicPath(root, filepath.Join(root, "Ringtones", "Marimba.mp3")))
	assert.False(t, isMusicPath(root, filepath.Join(root, "podcasts", "ep1.mp3")))

	podcasts := filepath.FromSlash("/home/u/podcasts/library")
	assert.True(t, isMusicPath(podcasts, filepath.Join(podcasts, "Song.mp3")),
		"folders above the root do not count")
}

func TestScan_LibraryBelowNonMusicFolder(t *testing.T) {
	s := openTestStore(t)
	dir := filepath.Join(t.TempDir(), "podcasts", "library")
	ctx := context.Background()
	writeFile(t, filepath.Join(dir, "Song.mp3"), []byte("mp3"))
	writeFile(t, filepath.Join(dir, "alarms", "Beep.mp3"), []byte("mp3"))

	_, err := s.Scan(ctx, []string{dir}, 1)
	require.NoError(t, err)

	rows, err := s.Tracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Song"}, trackTitles(rows))
}

func TestScan_SkipsUndecodableFormats(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	ctx := context.Background()
	writeFile(t, filepath.Join(dir, "Song.m4a"), []byte("m4a"))
	writeFile(t, filepath.Join(dir, "Song.mp3"), []byte("mp3"))

	stats, err := s.Scan(ctx, []string{dir}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)

	rows, err := s.Tracks(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	path, err := s.Resolve(rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ".mp3", filepath.Ext(path))
}

func TestScan_MissingDirKeepsItsRows(t *testing.T) {
	s := openTestStore(t)
	base := t.TempDir()
	ctx := context.Background()
	music := filepath.Join(base, "Music")
	other := filepath.Join(base, "Other")
	writeFile(t, filepath.Join(music, "A.mp3"), []byte("a"))
	writeFile(t, filepath.Join(other, "B.mp3"), []byte("b"))

	_, err := s.Scan(ctx, []string{music, other}, 1)
	require.NoError(t, err)

	// an unmounted drive looks like a missing directory
	unmounted := filepath.Join(base, "Music.unmounted")
	require.NoError(t, os.Rename(music, unmounted))

	stats, err := s.Scan(ctx, []string{music, other}, 1)
	require.NoError(t, err)
	assert.Equal(t, ScanStats{Unchanged: 1}, stats)

	rows, err := s.Tracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, trackTitles(rows))

	require.NoError(t, os.Rename(unmounted, music))
	stats, err = s.Scan(ctx, []string{music, other}, 1)
	require.NoError(t, err)
	assert.Equal(t, ScanStats{Unchanged: 2}, stats)
}
