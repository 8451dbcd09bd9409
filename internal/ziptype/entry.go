package ziptype

import (
	"io/fs"
	"time"
)

// Kind distinguishes the sources an entry can be built from.
type Kind uint8

const (
	// KindFile is a file whose content is read from the filesystem at build time.
	KindFile Kind = iota
	// KindBytes is a file whose content is held in memory.
	KindBytes
	// KindDir is a directory; it carries no content.
	KindDir
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindBytes:
		return "bytes"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Entry is one registered item of an archive.
type Entry struct {
	// Path is the archive path, slash separated, without leading or trailing slash.
	Path string

	// Kind identifies where the content comes from.
	Kind Kind

	// Source is the filesystem location of a KindFile entry.
	Source string

	// Data is the content of a KindBytes entry.
	Data []byte

	// Mode holds permission bits. Zero selects the default for the kind.
	Mode fs.FileMode

	// ModTime is the modification time. The zero value selects the archive default.
	ModTime time.Time

	// Comment is stored in the central directory record.
	Comment string

	// Method is the compression policy for file entries.
	Method MethodPolicy

	// Level is the deflate level for file entries.
	Level int
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Kind == KindDir
}

// Payload is the result of compressing one file entry.
type Payload struct {
	// Data holds the bytes written after the local header.
	Data []byte

	// CRC32 is computed over the uncompressed content.
	CRC32 uint32

	// UncompressedSize is the content length before compression.
	UncompressedSize uint64

	// Method is the method Data is encoded with.
	Method Method

	// Mode is the permission bits learned from the source, if any.
	Mode fs.FileMode

	// ModTime is the modification time learned from the source, if any.
	ModTime time.Time

	// UID and GID are the source owner; HasOwner is false when unknown.
	UID, GID uint32
	HasOwner bool
}

// CompressedSize returns the number of payload bytes.
func (p *Payload) CompressedSize() uint64 {
	return uint64(len(p.Data))
}
