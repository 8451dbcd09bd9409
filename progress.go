package mtzip

import "github.com/meigma/mtzip/internal/ziptype"

// Re-export progress types.
type (
	// ProgressEvent represents a progress update during Write.
	ProgressEvent = ziptype.ProgressEvent

	// ProgressStage identifies the current phase of a Write.
	ProgressStage = ziptype.ProgressStage

	// ProgressFunc receives progress updates.
	// Implementations must be safe for concurrent calls.
	ProgressFunc = ziptype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StageCompressing is reported after an entry was compressed.
	StageCompressing = ziptype.StageCompressing

	// StageWriting is reported after an entry was written to the sink.
	StageWriting = ziptype.StageWriting

	// StageFinishing is reported once the central directory was written.
	StageFinishing = ziptype.StageFinishing
)
