package ziptype

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the internal packages and re-exported by mtzip.
var (
	// ErrSourceRead is returned when a filesystem source cannot be read.
	ErrSourceRead = errors.New("mtzip: source read failed")

	// ErrInvalidPath is returned when an archive path is malformed or unsafe.
	ErrInvalidPath = errors.New("mtzip: invalid archive path")

	// ErrArchiveTooLarge is returned when the archive exceeds the limits of the
	// non-Zip64 format: 65535 entries or 4 GiB offsets and sizes.
	ErrArchiveTooLarge = errors.New("mtzip: archive too large")

	// ErrSinkWrite is returned when the output destination rejects a write.
	ErrSinkWrite = errors.New("mtzip: sink write failed")

	// ErrInvalidLevel is returned for compression levels outside 0..9.
	ErrInvalidLevel = errors.New("mtzip: invalid compression level")

	// ErrInvalidComment is returned for comments longer than 65535 bytes.
	ErrInvalidComment = errors.New("mtzip: invalid comment")
)

// EntryError attributes a failure to one registered entry.
type EntryError struct {
	// Index is the entry's position in the archive.
	Index int
	// Path is the entry's archive path.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %q: %v", e.Path, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
