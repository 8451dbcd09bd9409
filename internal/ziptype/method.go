package ziptype

// Method identifies the ZIP compression method recorded for an entry.
type Method uint16

const (
	Stored   Method = 0
	Deflated Method = 8
)

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case Stored:
		return "store"
	case Deflated:
		return "deflate"
	default:
		return "unknown"
	}
}

// MethodPolicy decides which method a file entry is written with.
type MethodPolicy uint8

const (
	// MethodAuto deflates and falls back to Store when deflate does not shrink the data.
	MethodAuto MethodPolicy = iota
	// MethodDeflate always deflates non-empty data.
	MethodDeflate
	// MethodStore never compresses.
	MethodStore
)

// String returns the flag spelling of the policy.
func (p MethodPolicy) String() string {
	switch p {
	case MethodAuto:
		return "auto"
	case MethodDeflate:
		return "deflate"
	case MethodStore:
		return "store"
	default:
		return "unknown"
	}
}

// Compression levels accepted by the deflate compressor.
const (
	MinLevel     = 0
	MaxLevel     = 9
	DefaultLevel = 6
)

// ValidLevel reports whether level is within [MinLevel, MaxLevel].
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}
