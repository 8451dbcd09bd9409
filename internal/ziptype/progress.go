package ziptype

// ProgressEvent represents a progress update while an archive is built.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// BytesDone is the number of uncompressed bytes completed so far.
	BytesDone uint64

	// EntriesDone is the number of entries completed in the current stage.
	EntriesDone int

	// EntriesTotal is the number of entries the stage will process.
	EntriesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

const (
	// StageCompressing indicates file entries are being read and compressed.
	StageCompressing ProgressStage = iota

	// StageWriting indicates entries are being serialized to the sink.
	StageWriting

	// StageFinishing indicates the central directory is being written.
	StageFinishing
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageCompressing:
		return "compressing"
	case StageWriting:
		return "writing"
	case StageFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
