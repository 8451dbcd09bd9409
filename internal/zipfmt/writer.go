package zipfmt

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/mtzip/internal/ziptype"
)

// ErrClosed is returned when a Writer is used after Close.
var ErrClosed = errors.New("zipfmt: writer closed")

const bufferSize = 64 << 10

type record struct {
	header Header
	offset uint64
}

// Writer serializes entries to an append-only sink. It is not safe for
// concurrent use.
type Writer struct {
	bw      *bufio.Writer
	layout  Layout
	records []record
	scratch []byte
	err     error
	closed  bool
}

// NewWriter returns a Writer that emits an archive to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, bufferSize)}
}

// WriteEntry writes the local header for h followed by data.
// len(data) must equal h.CompressedSize.
func (w *Writer) WriteEntry(h *Header, data []byte) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if uint64(len(data)) != h.CompressedSize {
		return fmt.Errorf("zipfmt: %s: payload is %d bytes, header says %d", h.Name, len(data), h.CompressedSize)
	}
	offset, err := w.layout.Add(h)
	if err != nil {
		return err
	}

	w.scratch = h.appendLocal(w.scratch[:0])
	if err := w.write(w.scratch); err != nil {
		return err
	}
	if err := w.write(data); err != nil {
		return err
	}
	w.records = append(w.records, record{header: *h, offset: offset})
	return nil
}

// Close writes the central directory and the end record, then flushes.
// It does not close the underlying sink.
func (w *Writer) Close(comment string) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if _, err := w.layout.Finish(comment); err != nil {
		return err
	}
	w.closed = true

	for i := range w.records {
		rec := &w.records[i]
		w.scratch = rec.header.appendCentral(w.scratch[:0], rec.offset)
		if err := w.write(w.scratch); err != nil {
			return err
		}
	}
	w.scratch = appendDirectoryEnd(w.scratch[:0], w.layout.Records(), w.layout.DirectorySize(), w.layout.Offset(), comment)
	if err := w.write(w.scratch); err != nil {
		return err
	}
	if err := w.bw.Flush(); err != nil {
		w.err = fmt.Errorf("%w: %w", ziptype.ErrSinkWrite, err)
		return w.err
	}
	return nil
}

// Offset returns the offset of the next local header. After Close it is the
// offset of the central directory.
func (w *Writer) Offset() uint64 {
	return w.layout.Offset()
}

func (w *Writer) write(p []byte) error {
	if _, err := w.bw.Write(p); err != nil {
		w.err = fmt.Errorf("%w: %w", ziptype.ErrSinkWrite, err)
		return w.err
	}
	return nil
}
