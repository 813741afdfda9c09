package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchiver(t *testing.T, now time.Time) *Archiver {
	t.Helper()
	dir := t.TempDir()
	storePath := filepath.Join(dir, "ledger.db")
	require.NoError(t, os.WriteFile(storePath, []byte("sqlite pretend payload"), 0o644))
	return &Archiver{
		StorePath: storePath,
		DestDir:   filepath.Join(dir, "archives"),
		StatePath: filepath.Join(dir, "archive_state.json"),
		Now:       func() time.Time { return now },
	}
}

func TestArchiver_ProducesGzippedCopy(t *testing.T) {
	a := newTestArchiver(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC))

	dest, err := a.Run()
	require.NoError(t, err)
	require.NotEmpty(t, dest)
	assert.Equal(t, "archive_20240315-093000.db.gz", filepath.Base(dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	content, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "sqlite pretend payload", string(content))
}

func TestArchiver_OncePerDay(t *testing.T) {
	a := newTestArchiver(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC))

	first, err := a.Run()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Later the same day: skipped.
	a.Now = func() time.Time { return time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC) }
	second, err := a.Run()
	require.NoError(t, err)
	assert.Empty(t, second, "second run the same day should be a no-op")

	entries, err := os.ReadDir(a.DestDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Next day: a new artifact.
	a.Now = func() time.Time { return time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC) }
	third, err := a.Run()
	require.NoError(t, err)
	assert.NotEmpty(t, third)
}

func TestArchiver_SkipsMissingStore(t *testing.T) {
	dir := t.TempDir()
	a := &Archiver{
		StorePath: filepath.Join(dir, "never-created.db"),
		DestDir:   filepath.Join(dir, "archives"),
		StatePath: filepath.Join(dir, "state.json"),
	}

	dest, err := a.Run()
	require.NoError(t, err)
	assert.Empty(t, dest)
}

func TestArchiver_CorruptStateMeansNeverArchived(t *testing.T) {
	a := newTestArchiver(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC))
	require.NoError(t, os.WriteFile(a.StatePath, []byte("not json"), 0o644))

	dest, err := a.Run()
	require.NoError(t, err)
	assert.NotEmpty(t, dest, "corrupt state should not suppress the archive")
}
