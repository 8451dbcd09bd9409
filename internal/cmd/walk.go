package cmd

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/meigma/mtzip"
	"github.com/meigma/mtzip/internal/pathutil"
)

// addPath registers arg on archive. A regular file is stored under its base
// name; a directory is stored with everything below it, in lexical order.
// The current directory and filesystem roots contribute their contents only.
// Symbolic links and special files are skipped.
func addPath(archive *mtzip.Archive, arg, prefix string, logger *slog.Logger) error {
	root, err := homedir.Expand(arg)
	if err != nil {
		return fmt.Errorf("expand %s: %w", arg, err)
	}
	root = filepath.Clean(root)

	info, err := os.Lstat(root)
	if err != nil {
		return err
	}

	base := filepath.Base(root)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		base = ""
	}
	top := pathutil.Join(prefix, filepath.ToSlash(base))

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			logger.Warn("skipping non-regular file", "path", root)
			return nil
		}
		return archive.AddFile(root, top)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := top
		if rel != "." {
			name = pathutil.Join(top, filepath.ToSlash(rel))
		}

		switch {
		case d.IsDir():
			if name == "" {
				return nil
			}
			return archive.AddDirectory(name)
		case d.Type().IsRegular():
			return archive.AddFile(path, name)
		default:
			logger.Debug("skipping non-regular file", "path", path, "type", d.Type().String())
			return nil
		}
	})
}
