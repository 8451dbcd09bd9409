package mtzip

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/mtzip/internal/testutil"
)

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{
		"src/big.txt":  testutil.Compressible(100_000),
		"src/rand.bin": testutil.Incompressible(10_000),
	})

	a := New(WithClock(testutil.FixedClock()), WithComment("release build"))
	require.NoError(t, a.AddDirectory("docs/"))
	require.NoError(t, a.AddFile(filepath.Join(dir, "src", "big.txt"), "docs/big.txt"))
	require.NoError(t, a.AddFile(filepath.Join(dir, "src", "rand.bin"), "docs/rand.bin"))
	require.NoError(t, a.AddBytes([]byte("hello\n"), "hello.txt", EntryWithComment("greeting"), EntryWithMode(0o600)))

	var buf bytes.Buffer
	stats, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)

	entries, comment := testutil.ReadZip(t, buf.Bytes())
	assert.Equal(t, "release build", comment)
	require.Equal(t, []string{"docs/", "docs/big.txt", "docs/rand.bin", "hello.txt"}, testutil.Names(entries))

	assert.Equal(t, fs.ModeDir|0o755, entries[0].Mode)
	assert.Empty(t, entries[0].Content)
	assert.True(t, testutil.FixedTime.Equal(entries[0].Modified))

	assert.Equal(t, zip.Deflate, entries[1].Method)
	assert.Equal(t, testutil.Compressible(100_000), entries[1].Content)

	assert.Equal(t, zip.Store, entries[2].Method)
	assert.Equal(t, testutil.Incompressible(10_000), entries[2].Content)

	assert.Equal(t, zip.Store, entries[3].Method)
	assert.Equal(t, []byte("hello\n"), entries[3].Content)
	assert.Equal(t, "greeting", entries[3].Comment)
	assert.Equal(t, fs.FileMode(0o600), entries[3].Mode)
	assert.True(t, testutil.FixedTime.Equal(entries[3].Modified))

	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 1, stats.Directories)
	assert.Equal(t, 1, stats.Deflated)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, uint64(100_000+10_000+6), stats.BytesIn)
	assert.Equal(t, uint64(buf.Len()), stats.BytesOut)
	assert.Equal(t, digest.FromBytes(buf.Bytes()), stats.Digest)
}

// buildMixed registers a deterministic mix of disk files, memory entries and
// directories.
func buildMixed(t *testing.T) *Archive {
	t.Helper()

	dir := t.TempDir()
	a := New(WithClock(testutil.FixedClock()), WithModTime(testutil.FixedTime))
	for i := range 40 {
		switch i % 4 {
		case 0:
			require.NoError(t, a.AddDirectory(fmt.Sprintf("d%02d/", i)))
		case 1:
			name := fmt.Sprintf("disk%02d.txt", i)
			testutil.WriteFiles(t, dir, map[string][]byte{name: testutil.Compressible(1000 * i)})
			require.NoError(t, a.AddFile(filepath.Join(dir, name), "d/"+name))
		case 2:
			require.NoError(t, a.AddBytes(testutil.Incompressible(97*i), fmt.Sprintf("m/rand%02d.bin", i)))
		default:
			require.NoError(t, a.AddBytes(testutil.Compressible(13*i), fmt.Sprintf("m/text%02d.txt", i), EntryWithLevel(i%10)))
		}
	}
	require.NoError(t, a.AddDirectory("trailing/"))
	return a
}

func TestWrite_OrderInvariance(t *testing.T) {
	t.Parallel()

	a := buildMixed(t)
	write := func(opts ...WriteOption) []byte {
		var buf bytes.Buffer
		_, err := a.Write(context.Background(), &buf, opts...)
		require.NoError(t, err)
		return buf.Bytes()
	}

	want := write(WriteWithThreads(1))
	for _, threads := range []int{2, 3, 8, 64} {
		assert.Equal(t, want, write(WriteWithThreads(threads)), "threads=%d", threads)
	}
	assert.Equal(t, want, write(WriteWithStrategy(StrategyStreaming)))
	assert.Equal(t, want, write(WriteWithStrategy(StrategyStreaming), WriteWithThreads(1)))
	assert.Equal(t, want, write(WriteWithStrategy(StrategyStreaming), WriteWithMemoryBudget(1)))
	assert.Equal(t, want, write(WriteWithStrategy(StrategyStreaming), WriteWithMemoryBudget(-1)))

	entries, _ := testutil.ReadZip(t, want)
	assert.Len(t, entries, 41)
	assert.Equal(t, "trailing/", entries[40].Name)
}

func TestWrite_EmptyArchive(t *testing.T) {
	t.Parallel()

	for _, strategy := range []Strategy{StrategyBuffered, StrategyStreaming} {
		t.Run(strategy.String(), func(t *testing.T) {
			var buf bytes.Buffer
			stats, err := New().Write(context.Background(), &buf, WriteWithStrategy(strategy))
			require.NoError(t, err)

			want := make([]byte, 22)
			binary.LittleEndian.PutUint32(want, 0x06054b50)
			assert.Equal(t, want, buf.Bytes())
			assert.Zero(t, stats.Entries)
			assert.Zero(t, stats.Threads)
			assert.Equal(t, uint64(22), stats.BytesOut)

			entries, _ := testutil.ReadZip(t, buf.Bytes())
			assert.Empty(t, entries)
		})
	}
}

func TestWrite_SingleEmptyFile(t *testing.T) {
	t.Parallel()

	a := New(WithClock(testutil.FixedClock()))
	require.NoError(t, a.AddBytes(nil, "empty.txt", EntryWithMethod(MethodDeflate)))

	var buf bytes.Buffer
	stats, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Threads)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	f := zr.File[0]
	assert.Equal(t, "empty.txt", f.Name)
	assert.Equal(t, zip.Store, f.Method)
	assert.Zero(t, f.CRC32)
	assert.Zero(t, f.CompressedSize64)
	assert.Zero(t, f.UncompressedSize64)
	assert.Empty(t, f.Extra)
}

func TestWrite_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := New()
	require.NoError(t, a.AddBytes([]byte("a"), "a.txt"))
	require.NoError(t, a.AddFile(filepath.Join(dir, "nope-1"), "b.txt"))
	require.NoError(t, a.AddBytes([]byte("c"), "c.txt"))
	require.NoError(t, a.AddFile(filepath.Join(dir, "nope-2"), "d.txt"))

	var buf bytes.Buffer
	stats, err := a.Write(context.Background(), &buf, WriteWithThreads(4))
	require.Error(t, err)
	assert.Nil(t, stats)
	assert.Zero(t, buf.Len(), "no bytes may be written")

	require.ErrorIs(t, err, ErrSourceRead)
	require.ErrorIs(t, err, fs.ErrNotExist)
	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, "b.txt", entryErr.Path)
	assert.Equal(t, 1, entryErr.Index)

	msg := err.Error()
	require.Contains(t, msg, `"b.txt"`)
	require.Contains(t, msg, `"d.txt"`)
	assert.Less(t, strings.Index(msg, `"b.txt"`), strings.Index(msg, `"d.txt"`))
}

func TestWrite_MissingSourceStreaming(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AddBytes([]byte("a"), "a.txt"))
	require.NoError(t, a.AddFile(filepath.Join(t.TempDir(), "nope"), "b.txt"))
	require.NoError(t, a.AddBytes([]byte("c"), "c.txt"))

	var buf bytes.Buffer
	_, err := a.Write(context.Background(), &buf, WriteWithStrategy(StrategyStreaming))
	require.ErrorIs(t, err, ErrSourceRead)
	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, "b.txt", entryErr.Path)
}

func TestWrite_EntryLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("builds an archive with 65535 entries")
	}
	t.Parallel()

	a := New(WithClock(testutil.FixedClock()))
	for i := range 65535 {
		if err := a.AddBytes(nil, fmt.Sprintf("f%05d", i)); err != nil {
			require.NoError(t, err)
		}
	}

	var buf bytes.Buffer
	stats, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 65535, stats.Entries)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 65535)

	require.NoError(t, a.AddBytes(nil, "one-too-many"))
	for _, strategy := range []Strategy{StrategyBuffered, StrategyStreaming} {
		buf.Reset()
		_, err = a.Write(context.Background(), &buf, WriteWithStrategy(strategy))
		require.ErrorIs(t, err, ErrArchiveTooLarge, strategy.String())
		assert.Zero(t, buf.Len(), strategy.String())
	}
}

func TestWrite_SinkError(t *testing.T) {
	t.Parallel()

	for _, strategy := range []Strategy{StrategyBuffered, StrategyStreaming} {
		t.Run(strategy.String(), func(t *testing.T) {
			a := New()
			require.NoError(t, a.AddBytes(testutil.Compressible(1000), "a.txt"))

			w := &testutil.FailingWriter{Limit: 10}
			_, err := a.Write(context.Background(), w, WriteWithStrategy(strategy))
			require.ErrorIs(t, err, ErrSinkWrite)
			require.ErrorIs(t, err, testutil.ErrSink)
		})
	}
}

func TestWrite_Duplicates(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AddBytes([]byte("first"), "same.txt"))
	require.NoError(t, a.AddBytes([]byte("second"), "same.txt"))

	var buf bytes.Buffer
	_, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)

	entries, _ := testutil.ReadZip(t, buf.Bytes())
	require.Equal(t, []string{"same.txt", "same.txt"}, testutil.Names(entries))
	assert.Equal(t, []byte("first"), entries[0].Content)
	assert.Equal(t, []byte("second"), entries[1].Content)
}

func TestWrite_ModesAndTimes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"run.sh": []byte("#!/bin/sh\n")})
	script := filepath.Join(dir, "run.sh")
	require.NoError(t, os.Chmod(script, 0o755))
	diskTime := time.Date(2021, time.May, 6, 7, 8, 10, 0, time.UTC)
	require.NoError(t, os.Chtimes(script, diskTime, diskTime))

	explicit := time.Date(2022, time.January, 2, 3, 4, 6, 0, time.UTC)
	a := New(WithClock(testutil.FixedClock()), WithExtendedTimestamps(true))
	require.NoError(t, a.AddFile(script, "bin/run.sh"))
	require.NoError(t, a.AddFile(script, "bin/ro.sh", EntryWithMode(0o444), EntryWithModTime(explicit)))
	require.NoError(t, a.AddDirectory("etc", EntryWithMode(0o700)))
	require.NoError(t, a.AddBytes([]byte("x"), "x.txt"))

	var buf bytes.Buffer
	_, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)
	entries, _ := testutil.ReadZip(t, buf.Bytes())
	require.Len(t, entries, 4)

	assert.Equal(t, fs.FileMode(0o755), entries[0].Mode)
	assert.True(t, diskTime.Equal(entries[0].Modified), entries[0].Modified)

	assert.Equal(t, fs.FileMode(0o444), entries[1].Mode)
	assert.True(t, explicit.Equal(entries[1].Modified), entries[1].Modified)

	assert.Equal(t, fs.ModeDir|0o700, entries[2].Mode)
	assert.True(t, testutil.FixedTime.Equal(entries[2].Modified))

	assert.Equal(t, fs.FileMode(0o644), entries[3].Mode)
	assert.True(t, testutil.FixedTime.Equal(entries[3].Modified))

	// An archive-wide time overrides the source mtime but not the entry's own.
	fixed := New(WithModTime(testutil.FixedTime), WithExtendedTimestamps(true))
	require.NoError(t, fixed.AddFile(script, "run.sh"))
	require.NoError(t, fixed.AddFile(script, "own.sh", EntryWithModTime(explicit)))
	buf.Reset()
	_, err = fixed.Write(context.Background(), &buf)
	require.NoError(t, err)
	entries, _ = testutil.ReadZip(t, buf.Bytes())
	assert.True(t, testutil.FixedTime.Equal(entries[0].Modified), entries[0].Modified)
	assert.True(t, explicit.Equal(entries[1].Modified), entries[1].Modified)
}

func TestWrite_ExtraFields(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"f.txt": []byte("content")})

	a := New(WithClock(testutil.FixedClock()), WithExtendedTimestamps(true), WithUnixOwner(true))
	require.NoError(t, a.AddFile(filepath.Join(dir, "f.txt"), "f.txt"))
	require.NoError(t, a.AddBytes([]byte("m"), "m.txt"))

	var buf bytes.Buffer
	_, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)
	entries, _ := testutil.ReadZip(t, buf.Bytes())
	require.Len(t, entries, 2)

	mem := entries[1].Extra
	require.Len(t, mem, 9)
	assert.Equal(t, uint16(0x5455), binary.LittleEndian.Uint16(mem))
	assert.Equal(t, uint32(testutil.FixedTime.Unix()), binary.LittleEndian.Uint32(mem[5:])) //nolint:gosec // fits

	disk := entries[0].Extra
	if runtime.GOOS == "windows" {
		assert.Len(t, disk, 9)
		return
	}
	require.Len(t, disk, 9+15)
	owner := disk[9:]
	assert.Equal(t, uint16(0x7875), binary.LittleEndian.Uint16(owner))
	assert.Equal(t, uint32(os.Getuid()), binary.LittleEndian.Uint32(owner[6:]))  //nolint:gosec // test uid
	assert.Equal(t, uint32(os.Getgid()), binary.LittleEndian.Uint32(owner[11:])) //nolint:gosec // test gid
}

func TestWrite_NoExtraFieldsByDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"f.txt": []byte("content")})
	a := New()
	require.NoError(t, a.AddFile(filepath.Join(dir, "f.txt"), "f.txt"))
	require.NoError(t, a.AddDirectory("d"))

	var buf bytes.Buffer
	_, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)
	entries, _ := testutil.ReadZip(t, buf.Bytes())
	for _, e := range entries {
		assert.Empty(t, e.Extra, e.Name)
	}
}

func TestWrite_MethodPolicies(t *testing.T) {
	t.Parallel()

	text := testutil.Compressible(10_000)
	noise := testutil.Incompressible(10_000)

	a := New(WithSkipCompression(DefaultSkipCompression(0)))
	require.NoError(t, a.AddBytes(text, "auto.txt"))
	require.NoError(t, a.AddBytes(noise, "auto.bin"))
	require.NoError(t, a.AddBytes(noise, "forced.bin", EntryWithMethod(MethodDeflate)))
	require.NoError(t, a.AddBytes(text, "stored.txt", EntryWithMethod(MethodStore)))
	require.NoError(t, a.AddBytes(text, "photo.jpg"))
	require.NoError(t, a.AddBytes(text, "fast.txt", EntryWithLevel(0)))

	var buf bytes.Buffer
	stats, err := a.Write(context.Background(), &buf)
	require.NoError(t, err)
	entries, _ := testutil.ReadZip(t, buf.Bytes())

	methods := make(map[string]uint16, len(entries))
	for _, e := range entries {
		methods[e.Name] = e.Method
	}
	assert.Equal(t, map[string]uint16{
		"auto.txt":   zip.Deflate,
		"auto.bin":   zip.Store,
		"forced.bin": zip.Deflate,
		"stored.txt": zip.Store,
		"photo.jpg":  zip.Store,
		"fast.txt":   zip.Store,
	}, methods)
	assert.Equal(t, 2, stats.Deflated)
	assert.Equal(t, 4, stats.Stored)
}

func TestWrite_Progress(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AddDirectory("d"))
	require.NoError(t, a.AddBytes([]byte("one"), "d/1.txt"))
	require.NoError(t, a.AddBytes([]byte("two"), "d/2.txt"))

	var mu sync.Mutex
	var events []ProgressEvent
	_, err := a.Write(context.Background(), &bytes.Buffer{}, WriteWithProgress(func(ev ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	require.NoError(t, err)

	counts := make(map[ProgressStage]int)
	for _, ev := range events {
		counts[ev.Stage]++
	}
	assert.Equal(t, 2, counts[StageCompressing])
	assert.Equal(t, 3, counts[StageWriting])
	assert.Equal(t, 1, counts[StageFinishing])

	last := events[len(events)-1]
	assert.Equal(t, StageFinishing, last.Stage)
	assert.Equal(t, 3, last.EntriesDone)
	assert.Equal(t, 3, last.EntriesTotal)
	assert.Equal(t, uint64(6), last.BytesDone)
}

func TestWrite_Cancelled(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AddBytes([]byte("x"), "x.txt"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := a.Write(ctx, &buf)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestWrite_ArchiveCommentTooLong(t *testing.T) {
	t.Parallel()

	a := New(WithComment(strings.Repeat("c", 65536)))
	require.NoError(t, a.AddBytes([]byte("x"), "x.txt"))

	var buf bytes.Buffer
	_, err := a.Write(context.Background(), &buf)
	require.ErrorIs(t, err, ErrInvalidComment)
	assert.Zero(t, buf.Len())
}

func TestWrite_UnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := New().Write(context.Background(), &bytes.Buffer{}, WriteWithStrategy(Strategy(9)))
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.zip")
	a := New()
	require.NoError(t, a.AddBytes([]byte("hello"), "hello.txt"))

	stats, err := a.WriteFile(context.Background(), out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes(data), stats.Digest)
	entries, _ := testutil.ReadZip(t, data)
	assert.Equal(t, []string{"hello.txt"}, testutil.Names(entries))

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, names, 1, "temporary file left behind")
}

func TestWriteFile_FailureLeavesNoPartialArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.zip")
	require.NoError(t, os.WriteFile(out, []byte("previous"), 0o644))

	for _, strategy := range []Strategy{StrategyBuffered, StrategyStreaming} {
		a := New()
		require.NoError(t, a.AddBytes(testutil.Compressible(1<<20), "big.txt"))
		require.NoError(t, a.AddFile(filepath.Join(dir, "missing"), "missing.txt"))

		_, err := a.WriteFile(context.Background(), out, WriteWithStrategy(strategy))
		require.ErrorIs(t, err, ErrSourceRead)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, []byte("previous"), data)

		names, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, names, 1, "temporary file left behind")
	}
}
