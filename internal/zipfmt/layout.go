package zipfmt

import (
	"fmt"

	"github.com/meigma/mtzip/internal/sizing"
	"github.com/meigma/mtzip/internal/ziptype"
)

// Layout tracks the byte positions of an archive as entries are appended,
// rejecting anything the non-Zip64 format cannot describe.
//
// The zero value is an empty archive.
type Layout struct {
	offset  uint64 // offset of the next local header
	dirSize uint64
	records int
}

// Add accounts for one entry and returns the offset of its local header.
func (l *Layout) Add(h *Header) (uint64, error) {
	if l.records >= sizing.MaxUint16 {
		return 0, fmt.Errorf("%w: more than %d entries", ziptype.ErrArchiveTooLarge, sizing.MaxUint16)
	}
	if err := checkHeader(h); err != nil {
		return 0, err
	}
	if !sizing.FitsOffset32(l.offset) {
		return 0, fmt.Errorf("%w: %s: local header offset %d exceeds 4 GiB", ziptype.ErrArchiveTooLarge, h.Name, l.offset)
	}

	next, ok := sizing.AddUint64(l.offset, h.localLen(), h.CompressedSize)
	if !ok {
		return 0, fmt.Errorf("%w: %s: offset overflow", ziptype.ErrArchiveTooLarge, h.Name)
	}
	dirSize, ok := sizing.AddUint64(l.dirSize, h.centralLen())
	if !ok {
		return 0, fmt.Errorf("%w: central directory overflow", ziptype.ErrArchiveTooLarge)
	}

	offset := l.offset
	l.offset = next
	l.dirSize = dirSize
	l.records++
	return offset, nil
}

// Finish validates the central directory position and returns the total
// archive size including the end record with the given comment.
func (l *Layout) Finish(comment string) (uint64, error) {
	if !sizing.FitsUint16(sizing.Len(len(comment))) {
		return 0, fmt.Errorf("%w: archive comment is %d bytes", ziptype.ErrInvalidComment, len(comment))
	}
	if !sizing.FitsOffset32(l.offset) {
		return 0, fmt.Errorf("%w: central directory offset %d exceeds 4 GiB", ziptype.ErrArchiveTooLarge, l.offset)
	}
	if !sizing.FitsUint32(l.dirSize) {
		return 0, fmt.Errorf("%w: central directory size %d exceeds 4 GiB", ziptype.ErrArchiveTooLarge, l.dirSize)
	}
	total, ok := sizing.AddUint64(l.offset, l.dirSize, uint64(DirectoryEndLen+len(comment)))
	if !ok {
		return 0, fmt.Errorf("%w: archive size overflow", ziptype.ErrArchiveTooLarge)
	}
	return total, nil
}

// Offset returns the offset of the next local header, which is also the
// offset of the central directory once every entry was added.
func (l *Layout) Offset() uint64 {
	return l.offset
}

// DirectorySize returns the size of the central directory so far.
func (l *Layout) DirectorySize() uint64 {
	return l.dirSize
}

// Records returns the number of entries added.
func (l *Layout) Records() int {
	return l.records
}

func checkHeader(h *Header) error {
	if !sizing.FitsUint16(sizing.Len(len(h.Name))) {
		return fmt.Errorf("%w: name is %d bytes", ziptype.ErrInvalidPath, len(h.Name))
	}
	if !sizing.FitsUint16(sizing.Len(len(h.Comment))) {
		return fmt.Errorf("%w: %s: comment is %d bytes", ziptype.ErrInvalidComment, h.Name, len(h.Comment))
	}
	if !sizing.FitsUint16(sizing.Len(len(h.Extra))) {
		return fmt.Errorf("%w: %s: extra field is %d bytes", ziptype.ErrArchiveTooLarge, h.Name, len(h.Extra))
	}
	if !sizing.FitsOffset32(h.CompressedSize) {
		return fmt.Errorf("%w: %s: compressed size %d exceeds 4 GiB", ziptype.ErrArchiveTooLarge, h.Name, h.CompressedSize)
	}
	if !sizing.FitsUint32(h.UncompressedSize) {
		return fmt.Errorf("%w: %s: uncompressed size %d exceeds 4 GiB", ziptype.ErrArchiveTooLarge, h.Name, h.UncompressedSize)
	}
	return nil
}
