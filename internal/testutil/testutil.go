// Package testutil holds helpers shared by the mtzip tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// FixedTime is a timestamp that survives the two-second MS-DOS resolution.
var FixedTime = time.Date(2024, time.March, 9, 14, 30, 42, 0, time.UTC)

// FixedClock returns a clock that always reports FixedTime.
func FixedClock() func() time.Time {
	return func() time.Time { return FixedTime }
}

// ZipEntry is an archive member decoded by archive/zip.
type ZipEntry struct {
	Name     string
	Method   uint16
	Comment  string
	Mode     fs.FileMode
	Modified time.Time
	Extra    []byte
	Content  []byte
}

// ReadZip decodes data with archive/zip and returns its members in order
// together with the archive comment. Every member's content is read, which
// verifies its CRC-32.
func ReadZip(t testing.TB, data []byte) ([]ZipEntry, string) {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make([]ZipEntry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err, f.Name)
		content, err := io.ReadAll(rc)
		require.NoError(t, err, f.Name)
		require.NoError(t, rc.Close())

		entries = append(entries, ZipEntry{
			Name:     f.Name,
			Method:   f.Method,
			Comment:  f.Comment,
			Mode:     f.Mode(),
			Modified: f.Modified,
			Extra:    f.Extra,
			Content:  content,
		})
	}
	return entries, zr.Comment
}

// Names returns the member names of entries in order.
func Names(entries []ZipEntry) []string {
	names := make([]string, len(entries))
	for i := range entries {
		names[i] = entries[i].Name
	}
	return names
}

// WriteFiles creates files below dir. Keys are slash-separated relative
// paths; parent directories are created as needed.
func WriteFiles(t testing.TB, dir string, files map[string][]byte) {
	t.Helper()

	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, content, 0o644))
	}
}

// Compressible returns n bytes of repetitive text.
func Compressible(n int) []byte {
	pattern := []byte("the quick brown fox jumps over the lazy dog\n")
	out := make([]byte, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

// Incompressible returns n bytes from a deterministic xorshift stream.
func Incompressible(n int) []byte {
	out := make([]byte, n)
	x := uint64(0x9E3779B97F4A7C15)
	for i := range out {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		out[i] = byte(x)
	}
	return out
}

// ErrSink is returned by FailingWriter.
var ErrSink = errors.New("testutil: sink failure")

// FailingWriter accepts Limit bytes and then fails every write.
type FailingWriter struct {
	Limit   int
	Written int
}

// Write implements io.Writer.
func (w *FailingWriter) Write(p []byte) (int, error) {
	room := w.Limit - w.Written
	if room <= 0 {
		return 0, ErrSink
	}
	if len(p) > room {
		w.Written += room
		return room, ErrSink
	}
	w.Written += len(p)
	return len(p), nil
}

// CountingWriter records how many bytes were written to it.
type CountingWriter struct {
	N int64
}

// Write implements io.Writer.
func (w *CountingWriter) Write(p []byte) (int, error) {
	w.N += int64(len(p))
	return len(p), nil
}
