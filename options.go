package mtzip

import (
	"io/fs"
	"log/slog"
	"time"

	"github.com/meigma/mtzip/internal/compress"
	"github.com/meigma/mtzip/internal/ziptype"
)

// MethodPolicy selects how file content is encoded.
type MethodPolicy = ziptype.MethodPolicy

const (
	// MethodAuto deflates content and falls back to storing it when deflate
	// does not make it smaller.
	MethodAuto = ziptype.MethodAuto
	// MethodDeflate always deflates.
	MethodDeflate = ziptype.MethodDeflate
	// MethodStore always stores content uncompressed.
	MethodStore = ziptype.MethodStore
)

// Compression levels accepted by WithCompressionLevel and EntryWithLevel.
const (
	MinLevel     = ziptype.MinLevel
	MaxLevel     = ziptype.MaxLevel
	DefaultLevel = ziptype.DefaultLevel
)

// SkipCompressionFunc returns true when a file should be stored uncompressed.
// It is called once per file with the archive path and content size, and
// should be inexpensive.
type SkipCompressionFunc = compress.SkipCompressionFunc

// DefaultSkipCompression returns a SkipCompressionFunc that skips files
// smaller than minSize and known already-compressed extensions.
var DefaultSkipCompression = compress.DefaultSkipCompression

// config holds archive-wide settings.
type config struct {
	logger             *slog.Logger
	level              int
	method             MethodPolicy
	skipCompression    []SkipCompressionFunc
	comment            string
	modTime            time.Time
	clock              func() time.Time
	extendedTimestamps bool
	unixOwner          bool
}

// Option configures an Archive.
type Option func(*config)

// WithLogger sets the logger used for build diagnostics.
// A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithCompressionLevel sets the default deflate level (0-9) for entries
// registered after this option is applied. The default is DefaultLevel.
// Out-of-range levels make every later Add call fail with ErrInvalidLevel.
func WithCompressionLevel(level int) Option {
	return func(cfg *config) {
		cfg.level = level
	}
}

// WithMethod sets the default method policy for file entries.
func WithMethod(m MethodPolicy) Option {
	return func(cfg *config) {
		cfg.method = m
	}
}

// WithSkipCompression adds predicates that decide to store a file uncompressed.
// If any predicate returns true, compression is skipped for that file.
func WithSkipCompression(fns ...SkipCompressionFunc) Option {
	return func(cfg *config) {
		cfg.skipCompression = append(cfg.skipCompression, fns...)
	}
}

// WithComment sets the archive comment stored in the end of central
// directory record. It must not exceed 65535 bytes.
func WithComment(comment string) Option {
	return func(cfg *config) {
		cfg.comment = comment
	}
}

// WithModTime fixes the modification time of every entry that was not given
// one explicitly, including disk files. Use it for reproducible archives.
func WithModTime(t time.Time) Option {
	return func(cfg *config) {
		cfg.modTime = t
	}
}

// WithClock sets the clock sampled once per Write for memory entries and
// directories without an explicit modification time.
func WithClock(clock func() time.Time) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

// WithExtendedTimestamps adds the extended timestamp extra field (0x5455)
// carrying the Unix modification time to every entry.
func WithExtendedTimestamps(enabled bool) Option {
	return func(cfg *config) {
		cfg.extendedTimestamps = enabled
	}
}

// WithUnixOwner adds the Info-ZIP Unix owner extra field (0x7875) to disk
// entries whose owner can be determined.
func WithUnixOwner(enabled bool) Option {
	return func(cfg *config) {
		cfg.unixOwner = enabled
	}
}

// EntryOption configures a single registered entry.
type EntryOption func(*ziptype.Entry)

// EntryWithMode sets the permission bits of the entry. Only permission,
// setuid, setgid and sticky bits are kept.
func EntryWithMode(mode fs.FileMode) EntryOption {
	return func(e *ziptype.Entry) {
		e.Mode = mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	}
}

// EntryWithModTime sets the modification time of the entry.
func EntryWithModTime(t time.Time) EntryOption {
	return func(e *ziptype.Entry) {
		e.ModTime = t
	}
}

// EntryWithComment sets the entry comment stored in the central directory.
func EntryWithComment(comment string) EntryOption {
	return func(e *ziptype.Entry) {
		e.Comment = comment
	}
}

// EntryWithMethod overrides the archive method policy for this entry.
func EntryWithMethod(m MethodPolicy) EntryOption {
	return func(e *ziptype.Entry) {
		e.Method = m
	}
}

// EntryWithLevel overrides the archive compression level for this entry.
func EntryWithLevel(level int) EntryOption {
	return func(e *ziptype.Entry) {
		e.Level = level
	}
}

// Strategy selects how compression and serialization are interleaved.
type Strategy uint8

const (
	// StrategyBuffered compresses every entry before writing the first byte.
	// Nothing is written when any entry fails.
	StrategyBuffered Strategy = iota
	// StrategyStreaming writes each entry as soon as it and every entry
	// before it are compressed. Compressed data held in memory is bounded by
	// the memory budget. A failure may leave a truncated archive in the sink.
	StrategyStreaming
)

// String returns the name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyBuffered:
		return "buffered"
	case StrategyStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// DefaultMemoryBudget bounds the content held by the streaming strategy when
// no budget is given.
const DefaultMemoryBudget = 256 << 20

// writeConfig holds per-call settings.
type writeConfig struct {
	threads      int
	strategy     Strategy
	memoryBudget int64
	progress     ProgressFunc
}

// WriteOption configures a single Write call.
type WriteOption func(*writeConfig)

// WriteWithThreads limits the number of compression workers. Zero or a
// negative value uses the available parallelism.
func WriteWithThreads(n int) WriteOption {
	return func(cfg *writeConfig) {
		cfg.threads = n
	}
}

// WriteWithStrategy selects the build strategy. The default is StrategyBuffered.
func WriteWithStrategy(s Strategy) WriteOption {
	return func(cfg *writeConfig) {
		cfg.strategy = s
	}
}

// WriteWithMemoryBudget bounds, in bytes, the uncompressed content of entries
// the streaming strategy has started but not yet written. An entry larger
// than the budget runs alone. Zero uses DefaultMemoryBudget; a negative
// value removes the bound.
func WriteWithMemoryBudget(n int64) WriteOption {
	return func(cfg *writeConfig) {
		cfg.memoryBudget = n
	}
}

// WriteWithProgress sets a callback for progress updates.
// The callback may be invoked from multiple goroutines.
func WriteWithProgress(fn ProgressFunc) WriteOption {
	return func(cfg *writeConfig) {
		cfg.progress = fn
	}
}
