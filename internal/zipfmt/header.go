package zipfmt

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/meigma/mtzip/internal/ziptype"
)

// Header describes one archive entry as it appears in both the local file
// header and the central directory.
type Header struct {
	// Name is written verbatim; directories carry their trailing slash.
	Name string

	// Comment is written to the central directory only.
	Comment string

	Method   ziptype.Method
	Modified time.Time

	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64

	// ExternalAttrs holds the Unix mode in the high 16 bits.
	ExternalAttrs uint32

	// Extra is written after the name in both headers.
	Extra []byte
}

func (h *Header) localLen() uint64 {
	return uint64(FileHeaderLen + len(h.Name) + len(h.Extra))
}

func (h *Header) centralLen() uint64 {
	return uint64(DirectoryHeaderLen + len(h.Name) + len(h.Extra) + len(h.Comment))
}

// appendLocal appends the encoded local file header.
// Sizes must already be validated against the 32-bit limits.
func (h *Header) appendLocal(dst []byte) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, FileHeaderLen)...)
	b := writeBuf(dst[n:])
	date, clock := msDosTime(h.Modified)
	b.uint32(fileHeaderSignature)
	b.uint16(versionNeeded)
	b.uint16(flagUTF8)
	b.uint16(uint16(h.Method))
	b.uint16(clock)
	b.uint16(date)
	b.uint32(h.CRC32)
	b.uint32(uint32(h.CompressedSize))   //nolint:gosec // validated by Layout
	b.uint32(uint32(h.UncompressedSize)) //nolint:gosec // validated by Layout
	b.uint16(uint16(len(h.Name)))        //nolint:gosec // validated by Layout
	b.uint16(uint16(len(h.Extra)))       //nolint:gosec // validated by Layout
	dst = append(dst, h.Name...)
	return append(dst, h.Extra...)
}

// appendCentral appends the encoded central directory header.
func (h *Header) appendCentral(dst []byte, offset uint64) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, DirectoryHeaderLen)...)
	b := writeBuf(dst[n:])
	date, clock := msDosTime(h.Modified)
	b.uint32(directoryHeaderSignature)
	b.uint16(versionMadeBy)
	b.uint16(versionNeeded)
	b.uint16(flagUTF8)
	b.uint16(uint16(h.Method))
	b.uint16(clock)
	b.uint16(date)
	b.uint32(h.CRC32)
	b.uint32(uint32(h.CompressedSize))   //nolint:gosec // validated by Layout
	b.uint32(uint32(h.UncompressedSize)) //nolint:gosec // validated by Layout
	b.uint16(uint16(len(h.Name)))        //nolint:gosec // validated by Layout
	b.uint16(uint16(len(h.Extra)))       //nolint:gosec // validated by Layout
	b.uint16(uint16(len(h.Comment)))     //nolint:gosec // validated by Layout
	b = b[4:]                            // disk number start and internal attributes
	b.uint32(h.ExternalAttrs)
	b.uint32(uint32(offset)) //nolint:gosec // validated by Layout
	dst = append(dst, h.Name...)
	dst = append(dst, h.Extra...)
	return append(dst, h.Comment...)
}

// appendDirectoryEnd appends the end of central directory record.
func appendDirectoryEnd(dst []byte, records int, size, offset uint64, comment string) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, DirectoryEndLen)...)
	b := writeBuf(dst[n:])
	b.uint32(directoryEndSignature)
	b = b[4:]                      // number of this disk and of the disk with the directory
	b.uint16(uint16(records))      //nolint:gosec // validated by Layout
	b.uint16(uint16(records))      //nolint:gosec // validated by Layout
	b.uint32(uint32(size))         //nolint:gosec // validated by Layout
	b.uint32(uint32(offset))       //nolint:gosec // validated by Layout
	b.uint16(uint16(len(comment))) //nolint:gosec // validated by Layout
	return append(dst, comment...)
}

// ExtendedTimestamp encodes the 0x5455 extra field carrying the modification
// time in Unix seconds. It returns nil when t cannot be represented.
func ExtendedTimestamp(t time.Time) []byte {
	if t.IsZero() {
		return nil
	}
	secs := t.Unix()
	if secs < 0 || secs > math.MaxUint32 {
		return nil
	}
	buf := make([]byte, 9)
	b := writeBuf(buf)
	b.uint16(extTimeExtraID)
	b.uint16(5)
	b.uint8(1) // flags: modification time present
	b.uint32(uint32(secs))
	return buf
}

// UnixOwner encodes the 0x7875 Info-ZIP extra field carrying 32-bit UID and GID.
func UnixOwner(uid, gid uint32) []byte {
	buf := make([]byte, 15)
	b := writeBuf(buf)
	b.uint16(unixOwnerExtraID)
	b.uint16(11)
	b.uint8(1) // version
	b.uint8(4)
	b.uint32(uid)
	b.uint8(4)
	b.uint32(gid)
	return buf
}

// msDosTime converts t to MS-DOS date and time fields. Times before 1980
// are clamped to the format's epoch and times after 2107 to its end.
func msDosTime(t time.Time) (date, clock uint16) {
	switch {
	case t.IsZero() || t.Year() < 1980:
		return 1<<5 | 1, 0
	case t.Year() > 2107:
		return 127<<9 | 12<<5 | 31, 23<<11 | 59<<5 | 29
	}
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	clock = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return date, clock
}

type writeBuf []byte

func (b *writeBuf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}
