package compress

import (
	"path"
	"strings"
)

// SkipCompressionFunc returns true when an entry should be stored uncompressed.
// It is called once per file entry with its archive path and size, and
// should be inexpensive.
type SkipCompressionFunc func(name string, size int64) bool

// DefaultSkipCompression returns a SkipCompressionFunc that skips small files
// and known already-compressed extensions.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(name string, size int64) bool {
		if minSize > 0 && size < minSize {
			return true
		}
		ext := strings.ToLower(path.Ext(name))
		_, ok := compressedExts[ext]
		return ok
	}
}

// ShouldSkip checks if any predicate returns true for the given entry.
func ShouldSkip(name string, size int64, predicates []SkipCompressionFunc) bool {
	for _, fn := range predicates {
		if fn != nil && fn(name, size) {
			return true
		}
	}
	return false
}

var compressedExts = map[string]struct{}{
	".7z":   {},
	".aac":  {},
	".avif": {},
	".br":   {},
	".bz2":  {},
	".docx": {},
	".flac": {},
	".gif":  {},
	".gz":   {},
	".heic": {},
	".jar":  {},
	".jpeg": {},
	".jpg":  {},
	".lz4":  {},
	".mkv":  {},
	".mov":  {},
	".mp3":  {},
	".mp4":  {},
	".ogg":  {},
	".png":  {},
	".rar":  {},
	".tgz":  {},
	".webm": {},
	".webp": {},
	".xlsx": {},
	".xz":   {},
	".zip":  {},
	".zst":  {},
}
