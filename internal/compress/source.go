package compress

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/meigma/mtzip/internal/sizing"
	"github.com/meigma/mtzip/internal/ziptype"
)

// Source is the content and metadata of a file read from disk.
type Source struct {
	Data  []byte
	CRC32 uint32
	Info  fs.FileInfo
}

// ReadSource reads the regular file at path, computing its CRC-32 while
// reading. I/O failures wrap ErrSourceRead and the underlying error; files
// that cannot fit a non-Zip64 entry wrap ErrArchiveTooLarge.
func ReadSource(path string) (*Source, error) {
	f, err := os.Open(path) //nolint:gosec // caller-registered source path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ziptype.ErrSourceRead, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ziptype.ErrSourceRead, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s: not a regular file", ziptype.ErrSourceRead, path)
	}
	size := info.Size()
	if size < 0 || !sizing.FitsUint32(uint64(size)) {
		return nil, fmt.Errorf("%w: %s is %d bytes", ziptype.ErrArchiveTooLarge, path, size)
	}

	data := make([]byte, size)
	n, err := io.ReadFull(f, data)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// Shrank while open.
		data = data[:n]
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ziptype.ErrSourceRead, err)
	}
	crc := UpdateChecksum(0, data)

	// A file that grew while open is read to its end, one byte past the
	// entry limit at most.
	var next [1]byte
	m, err := f.Read(next[:])
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ziptype.ErrSourceRead, err)
	}
	if m > 0 {
		rest, err := io.ReadAll(io.LimitReader(f, sizing.MaxUint32-int64(len(data))))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ziptype.ErrSourceRead, err)
		}
		crc = UpdateChecksum(UpdateChecksum(crc, next[:]), rest)
		data = append(append(data, next[0]), rest...)
	}
	if !sizing.FitsUint32(uint64(len(data))) {
		return nil, fmt.Errorf("%w: %s grew past 4 GiB", ziptype.ErrArchiveTooLarge, path)
	}

	return &Source{
		Data:  data,
		CRC32: crc,
		Info:  info,
	}, nil
}
