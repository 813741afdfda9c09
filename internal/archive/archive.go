// Package archive produces the daily compressed copy of the store
// file: at most one artifact per calendar day, tracked in a JSON state
// file so repeated invocations on the same day are no-ops.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

type state struct {
	LastArchiveDate string `json:"last_archive_date"`
}

// Archiver copies the store file into a timestamped gzip artifact.
// Now is overridable for tests; the zero value uses the real clock.
type Archiver struct {
	StorePath string
	DestDir   string
	StatePath string
	Now       func() time.Time
}

// Run produces today's artifact unless one was already produced today
// or the store file does not exist. Returns the artifact path, or ""
// when skipped.
func (a *Archiver) Run() (string, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	today := now().Format("2006-01-02")

	st := a.readState()
	if st.LastArchiveDate == today {
		slog.Debug("archive already produced today", "date", today)
		return "", nil
	}

	if _, err := os.Stat(a.StorePath); os.IsNotExist(err) {
		return "", nil
	}

	if err := os.MkdirAll(a.DestDir, 0o755); err != nil {
		return "", fmt.Errorf("archive: mkdir: %w", err)
	}
	name := fmt.Sprintf("archive_%s.db.gz", now().Format("20060102-150405"))
	dest := filepath.Join(a.DestDir, name)

	if err := gzipCopy(a.StorePath, dest); err != nil {
		return "", err
	}

	st.LastArchiveDate = today
	if err := a.writeState(st); err != nil {
		return "", err
	}
	slog.Info("archive produced", "path", dest)
	return dest, nil
}

func gzipCopy(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("archive: open store: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("archive: create artifact: %w", err)
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		return fmt.Errorf("archive: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: finish: %w", err)
	}
	return out.Sync()
}

func (a *Archiver) readState() state {
	var st state
	data, err := os.ReadFile(a.StatePath)
	if err != nil {
		return st
	}
	// A corrupt state file means "never archived"; worst case is one
	// extra artifact.
	_ = json.Unmarshal(data, &st)
	return st
}

func (a *Archiver) writeState(st state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: marshal state: %w", err)
	}
	if dir := filepath.Dir(a.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("archive: mkdir state: %w", err)
		}
	}
	if err := os.WriteFile(a.StatePath, data, 0o644); err != nil {
		return fmt.Errorf("archive: write state: %w", err)
	}
	return nil
}
