package mtzip

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/mtzip/internal/compress"
	"github.com/meigma/mtzip/internal/platform"
	"github.com/meigma/mtzip/internal/schedule"
	"github.com/meigma/mtzip/internal/sizing"
	"github.com/meigma/mtzip/internal/zipfmt"
	"github.com/meigma/mtzip/internal/ziptype"
)

// Stats summarizes a successful Write.
type Stats struct {
	// Entries is the number of entries written, Files and Directories split it by kind.
	Entries     int
	Files       int
	Directories int

	// Stored and Deflated count file entries by the method they were written with.
	Stored   int
	Deflated int

	// BytesIn is the total uncompressed content size.
	BytesIn uint64

	// BytesOut is the size of the archive.
	BytesOut uint64

	// Threads is the number of compression workers used.
	Threads int

	// Digest is the sha256 digest of the archive bytes.
	Digest digest.Digest
}

// Write compresses every registered entry and writes the archive to w.
//
// Entries appear in insertion order. File entries are compressed by up to
// WriteWithThreads workers; the output is byte-identical for any worker
// count. Directory entries are never scheduled. Entries already compressed
// by [Archive.Compress] are written from its cache without reading their
// sources again.
//
// A failing entry does not stop the others. When entries fail, Write
// returns every failure as an *EntryError joined in entry order. With the
// default buffered strategy nothing is written to w on any failure other
// than a failing w itself.
//
// Cancelling ctx stops new entries from being compressed and Write returns
// ctx.Err().
func (a *Archive) Write(ctx context.Context, w io.Writer, opts ...WriteOption) (*Stats, error) {
	wcfg := writeConfig{}
	for _, opt := range opts {
		opt(&wcfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := a.newBuild(wcfg)
	if err := b.check(); err != nil {
		return nil, err
	}
	b.log.Info("writing archive",
		"entries", len(b.entries),
		"files", len(b.files),
		"threads", b.threads,
		"strategy", wcfg.strategy.String())

	digester := digest.Canonical.Digester()
	sink := &countingWriter{w: io.MultiWriter(w, digester.Hash())}

	var err error
	switch wcfg.strategy {
	case StrategyBuffered:
		err = b.buffered(ctx, sink)
	case StrategyStreaming:
		err = b.stream(ctx, sink)
	default:
		err = fmt.Errorf("mtzip: unknown strategy %d", wcfg.strategy)
	}
	if err != nil {
		b.log.Warn("archive write failed", "error", err)
		return nil, err
	}

	b.stats.BytesOut = sink.n
	b.stats.Digest = digester.Digest()
	b.log.Info("archive written",
		"entries", b.stats.Entries,
		"bytes_in", b.stats.BytesIn,
		"bytes_out", b.stats.BytesOut,
		"digest", b.stats.Digest.String())
	return &b.stats, nil
}

// build holds the state of one Write or Compress call.
type build struct {
	cfg     *config
	wcfg    writeConfig
	log     *slog.Logger
	entries []ziptype.Entry
	files   []int             // indices of entries that need compression
	cached  []ziptype.Payload // payloads of files[:len(cached)]
	now     time.Time
	threads int
	comp    *compress.Compressor

	compressed atomic.Int64
	bytesIn    atomic.Uint64
	stats      Stats
}

func (a *Archive) newBuild(wcfg writeConfig) *build {
	entries, cached := a.snapshot()
	files := make([]int, 0, len(entries))
	for i := range entries {
		if !entries[i].IsDir() {
			files = append(files, i)
		}
	}
	threads := ThreadCount(wcfg.threads, len(files)-len(cached))
	b := &build{
		cfg:     &a.cfg,
		wcfg:    wcfg,
		log:     a.log(),
		entries: entries,
		files:   files,
		cached:  cached,
		now:     a.cfg.clock(),
		threads: threads,
		comp:    compress.NewCompressor(),
		stats:   Stats{Threads: threads},
	}
	b.compressed.Store(int64(len(cached)))
	for i := range cached {
		b.bytesIn.Add(cached[i].UncompressedSize)
	}
	return b
}

// check rejects archives that cannot be written before any work starts.
func (b *build) check() error {
	if len(b.cfg.comment) > sizing.MaxUint16 {
		return fmt.Errorf("%w: archive comment is %d bytes", ErrInvalidComment, len(b.cfg.comment))
	}
	if len(b.entries) > sizing.MaxUint16 {
		return fmt.Errorf("%w: %d entries, at most %d without Zip64", ErrArchiveTooLarge, len(b.entries), sizing.MaxUint16)
	}
	return nil
}

// buffered compresses every file, plans the complete layout and only then
// writes, so that no byte reaches the sink for an archive that cannot be
// completed.
func (b *build) buffered(ctx context.Context, sink io.Writer) error {
	fresh, err := b.pending(ctx)
	if err != nil {
		return err
	}
	payloads := make([]ziptype.Payload, 0, len(b.files))
	payloads = append(append(payloads, b.cached...), fresh...)

	headers := make([]zipfmt.Header, len(b.entries))
	data := make([][]byte, len(b.entries))
	var layout zipfmt.Layout
	j := 0
	for i := range b.entries {
		e := &b.entries[i]
		var p *ziptype.Payload
		if !e.IsDir() {
			p = &payloads[j]
			data[i] = p.Data
			j++
		}
		headers[i] = b.header(e, p)
		if _, err := layout.Add(&headers[i]); err != nil {
			return err
		}
	}
	total, err := layout.Finish(b.cfg.comment)
	if err != nil {
		return err
	}
	b.log.Debug("layout planned", "size", total, "directory_offset", layout.Offset(), "directory_size", layout.DirectorySize())

	if err := ctx.Err(); err != nil {
		return err
	}
	zw := zipfmt.NewWriter(sink)
	for i := range headers {
		if err := b.write(zw, i, &headers[i], data[i]); err != nil {
			return err
		}
	}
	return b.finish(zw)
}

// stream writes each entry as soon as it and all entries before it are
// ready. Directories are written when the serializer reaches them.
func (b *build) stream(ctx context.Context, sink io.Writer) error {
	zw := zipfmt.NewWriter(sink)
	next := 0
	writeDirs := func(end int) error {
		for ; next < end; next++ {
			h := b.header(&b.entries[next], nil)
			if err := b.write(zw, next, &h, nil); err != nil {
				return err
			}
		}
		return nil
	}

	budget := b.wcfg.memoryBudget
	switch {
	case budget == 0:
		budget = DefaultMemoryBudget
	case budget < 0:
		budget = 0
	}
	b.log.Debug("streaming archive", "memory_budget", budget)

	emit := func(j int, payload ziptype.Payload) error {
		i := b.files[j]
		if err := writeDirs(i); err != nil {
			return err
		}
		h := b.header(&b.entries[i], &payload)
		if err := b.write(zw, i, &h, payload.Data); err != nil {
			return err
		}
		next = i + 1
		return nil
	}
	for j := range b.cached {
		if err := emit(j, b.cached[j]); err != nil {
			return err
		}
	}

	k := len(b.cached)
	p := &schedule.Pipeline[ziptype.Payload]{
		Workers: b.threads,
		Budget:  budget,
		Weight:  func(j int) int64 { return b.weight(k + j) },
		Job: func(ctx context.Context, j int) (ziptype.Payload, error) {
			return b.compressJob(ctx, k+j)
		},
		Emit: func(j int, payload ziptype.Payload) error {
			return emit(k+j, payload)
		},
	}
	if err := p.Run(ctx, len(b.files)-k); err != nil {
		return err
	}
	if err := writeDirs(len(b.entries)); err != nil {
		return err
	}
	return b.finish(zw)
}

// pending compresses the file entries not covered by the cache, in order.
func (b *build) pending(ctx context.Context) ([]ziptype.Payload, error) {
	k := len(b.cached)
	return schedule.Run(ctx, len(b.files)-k, b.threads, func(ctx context.Context, j int) (ziptype.Payload, error) {
		return b.compressJob(ctx, k+j)
	})
}

// compressJob reads and compresses the j-th file entry.
func (b *build) compressJob(_ context.Context, j int) (ziptype.Payload, error) {
	i := b.files[j]
	e := &b.entries[i]
	p, err := b.compress(e)
	if err != nil {
		b.log.Warn("entry failed", "index", i, "path", e.Path, "error", err)
		return ziptype.Payload{}, &EntryError{Index: i, Path: e.Path, Err: err}
	}

	done := b.compressed.Add(1)
	bytesDone := b.bytesIn.Add(p.UncompressedSize)
	b.report(StageCompressing, e.Path, bytesDone, int(done), len(b.files))
	return p, nil
}

func (b *build) compress(e *ziptype.Entry) (ziptype.Payload, error) {
	var (
		data []byte
		crc  uint32
		info fs.FileInfo
	)
	if e.Kind == ziptype.KindFile {
		src, err := compress.ReadSource(e.Source)
		if err != nil {
			return ziptype.Payload{}, err
		}
		data, crc, info = src.Data, src.CRC32, src.Info
	} else {
		data, crc = e.Data, compress.Checksum(e.Data)
	}

	policy := e.Method
	if policy != MethodStore && compress.ShouldSkip(e.Path, int64(len(data)), b.cfg.skipCompression) {
		policy = MethodStore
	}
	p, err := b.comp.Compress(data, crc, e.Level, policy)
	if err != nil {
		return ziptype.Payload{}, err
	}
	if info != nil {
		p.Mode = info.Mode() & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
		p.ModTime = info.ModTime()
		p.UID, p.GID, p.HasOwner = platform.FileOwner(info)
	}
	return p, nil
}

// weight estimates the memory a file entry holds until it is written.
func (b *build) weight(j int) int64 {
	e := &b.entries[b.files[j]]
	if e.Kind == ziptype.KindBytes {
		return int64(len(e.Data))
	}
	info, err := os.Stat(e.Source)
	if err != nil {
		return 1
	}
	return info.Size()
}

// header resolves the metadata of entry e. p is nil for directories.
func (b *build) header(e *ziptype.Entry, p *ziptype.Payload) zipfmt.Header {
	h := zipfmt.Header{
		Name:     e.Path,
		Comment:  e.Comment,
		Method:   ziptype.Stored,
		Modified: b.modTime(e, p),
	}

	mode := e.Mode
	if e.IsDir() {
		h.Name += "/"
		if mode == 0 {
			mode = platform.DefaultDirMode
		}
	} else {
		h.Method = p.Method
		h.CRC32 = p.CRC32
		h.CompressedSize = p.CompressedSize()
		h.UncompressedSize = p.UncompressedSize
		if mode == 0 {
			mode = p.Mode
		}
		if mode == 0 {
			mode = platform.DefaultFileMode
		}
	}
	h.ExternalAttrs = platform.ExternalAttrs(mode, e.IsDir())

	if b.cfg.extendedTimestamps {
		h.Extra = append(h.Extra, zipfmt.ExtendedTimestamp(h.Modified)...)
	}
	if b.cfg.unixOwner && p != nil && p.HasOwner {
		h.Extra = append(h.Extra, zipfmt.UnixOwner(p.UID, p.GID)...)
	}
	return h
}

// modTime picks the first of: the entry's own time, the archive-wide fixed
// time, the source file's time, and the clock sampled at the start of Write.
func (b *build) modTime(e *ziptype.Entry, p *ziptype.Payload) time.Time {
	switch {
	case !e.ModTime.IsZero():
		return e.ModTime
	case !b.cfg.modTime.IsZero():
		return b.cfg.modTime
	case p != nil && !p.ModTime.IsZero():
		return p.ModTime
	default:
		return b.now
	}
}

// write serializes entry i and accounts for it.
func (b *build) write(zw *zipfmt.Writer, i int, h *zipfmt.Header, data []byte) error {
	if err := zw.WriteEntry(h, data); err != nil {
		return err
	}

	s := &b.stats
	s.Entries++
	s.BytesIn += h.UncompressedSize
	switch {
	case b.entries[i].IsDir():
		s.Directories++
	case h.Method == ziptype.Deflated:
		s.Files++
		s.Deflated++
	default:
		s.Files++
		s.Stored++
	}
	b.report(StageWriting, b.entries[i].Path, s.BytesIn, s.Entries, len(b.entries))
	return nil
}

func (b *build) finish(zw *zipfmt.Writer) error {
	if err := zw.Close(b.cfg.comment); err != nil {
		return err
	}
	b.report(StageFinishing, "", b.stats.BytesIn, b.stats.Entries, len(b.entries))
	return nil
}

// report sends a progress event if a callback is configured.
func (b *build) report(stage ProgressStage, path string, bytesDone uint64, done, total int) {
	if b.wcfg.progress == nil {
		return
	}
	b.wcfg.progress(ProgressEvent{
		Stage:        stage,
		Path:         path,
		BytesDone:    bytesDone,
		EntriesDone:  done,
		EntriesTotal: total,
	})
}

// countingWriter counts the bytes accepted by w.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n) //nolint:gosec // n is never negative
	return n, err
}
