package mtzip

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/meigma/mtzip/internal/pathutil"
	"github.com/meigma/mtzip/internal/schedule"
	"github.com/meigma/mtzip/internal/sizing"
	"github.com/meigma/mtzip/internal/ziptype"
)

// Entry describes a registered archive entry.
type Entry = ziptype.Entry

// Kind distinguishes the sources an entry can be built from.
type Kind = ziptype.Kind

// Entry kinds.
const (
	KindFile  = ziptype.KindFile
	KindBytes = ziptype.KindBytes
	KindDir   = ziptype.KindDir
)

// Archive is an ordered set of entries to be written as a ZIP archive.
//
// Entries are written in the order they were added, whatever the number of
// compression workers. Add methods are safe for concurrent use; entries
// added while a Write is running are not part of that Write.
type Archive struct {
	cfg config

	mu      sync.Mutex
	entries []ziptype.Entry
	// cache holds the payloads built by Compress for the leading file
	// entries, in entry order. Entries are append-only, so it stays valid
	// as more are added.
	cache []ziptype.Payload
}

// New returns an empty Archive configured by opts.
func New(opts ...Option) *Archive {
	cfg := config{
		level:  DefaultLevel,
		method: MethodAuto,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	return &Archive{cfg: cfg}
}

// AddFile registers the file at source to be stored at path. The source is
// read when the archive is written, so a missing source is reported by Write.
func (a *Archive) AddFile(source, path string, opts ...EntryOption) error {
	return a.add(ziptype.Entry{Path: path, Kind: ziptype.KindFile, Source: source}, opts)
}

// AddBytes registers data to be stored at path. The archive takes ownership
// of data; callers must not modify it afterwards.
func (a *Archive) AddBytes(data []byte, path string, opts ...EntryOption) error {
	return a.add(ziptype.Entry{Path: path, Kind: ziptype.KindBytes, Data: data}, opts)
}

// AddDirectory registers a directory entry. A single trailing slash in path
// is accepted. Parent directories are not added implicitly.
func (a *Archive) AddDirectory(path string, opts ...EntryOption) error {
	return a.add(ziptype.Entry{Path: path, Kind: ziptype.KindDir}, opts)
}

func (a *Archive) add(e ziptype.Entry, opts []EntryOption) error {
	name, err := pathutil.Clean(e.Path, e.IsDir())
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidPath, e.Path, err)
	}
	e.Path = name
	e.Method = a.cfg.method
	e.Level = a.cfg.level
	for _, opt := range opts {
		opt(&e)
	}
	if !e.IsDir() && e.Method != MethodStore && !ziptype.ValidLevel(e.Level) {
		return fmt.Errorf("%w: %q: level %d", ErrInvalidLevel, e.Path, e.Level)
	}
	if len(e.Comment) > sizing.MaxUint16 {
		return fmt.Errorf("%w: %q: comment is %d bytes", ErrInvalidComment, e.Path, len(e.Comment))
	}

	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()
	return nil
}

// Len returns the number of registered entries.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Entries returns a copy of the registered entries in insertion order.
// Data slices of memory entries are shared, not copied.
func (a *Archive) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries)
}

// snapshot returns the entries and the cached payloads as of one instant.
func (a *Archive) snapshot() ([]ziptype.Entry, []ziptype.Payload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries), a.cache[:len(a.cache):len(a.cache)]
}

func (a *Archive) log() *slog.Logger {
	if a.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.cfg.logger
}

// ThreadCount returns the number of compression workers Write starts for
// the given number of file entries. A positive override caps the result, as
// do GOMAXPROCS and jobs. It is 0 only when there are no jobs.
func ThreadCount(override, jobs int) int {
	return schedule.ThreadCount(override, schedule.Available(), jobs)
}
