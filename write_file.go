package mtzip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteFile writes the archive to the file at path.
//
// The archive is written to a temporary file in the same directory and
// renamed into place once complete, so path never holds a partial archive.
// On failure the temporary file is removed and an existing file at path is
// left untouched.
func (a *Archive) WriteFile(ctx context.Context, path string, opts ...WriteOption) (*Stats, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmpPath := filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("create temporary file: %w", err)
	}

	stats, err := a.Write(ctx, f, opts...)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("sync archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("rename archive: %w", err)
	}

	a.log().Debug("archive file written", "path", path)
	return stats, nil
}
