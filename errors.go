package mtzip

import "github.com/meigma/mtzip/internal/ziptype"

// Errors returned by archive registration and Write.
var (
	// ErrSourceRead is returned when a disk source cannot be opened or read.
	ErrSourceRead = ziptype.ErrSourceRead

	// ErrInvalidPath is returned when an archive path violates the path policy.
	ErrInvalidPath = ziptype.ErrInvalidPath

	// ErrArchiveTooLarge is returned when the archive would need Zip64:
	// more than 65535 entries, or a size or offset beyond 4 GiB.
	ErrArchiveTooLarge = ziptype.ErrArchiveTooLarge

	// ErrSinkWrite is returned when the output writer fails.
	ErrSinkWrite = ziptype.ErrSinkWrite

	// ErrInvalidLevel is returned for compression levels outside 0-9.
	ErrInvalidLevel = ziptype.ErrInvalidLevel

	// ErrInvalidComment is returned for comments longer than 65535 bytes.
	ErrInvalidComment = ziptype.ErrInvalidComment
)

// EntryError attributes a failure to one registered entry. Index is the
// position of the entry in insertion order.
type EntryError = ziptype.EntryError
