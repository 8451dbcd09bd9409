// Package sizing provides overflow-checked arithmetic for ZIP field widths.
package sizing

import "math"

// Limits of the non-Zip64 format.
const (
	MaxUint16 = math.MaxUint16
	MaxUint32 = math.MaxUint32
)

// FitsUint16 reports whether n can be stored in a 16-bit field.
func FitsUint16(n uint64) bool {
	return n <= MaxUint16
}

// FitsUint32 reports whether n can be stored in a 32-bit field.
func FitsUint32(n uint64) bool {
	return n <= MaxUint32
}

// FitsOffset32 reports whether n can be stored in a 32-bit offset or
// compressed size field. 0xFFFFFFFF is excluded: readers take it as the
// marker for a Zip64 extra field.
func FitsOffset32(n uint64) bool {
	return n < MaxUint32
}

// AddUint64 adds values, returning (result, false) on overflow.
func AddUint64(values ...uint64) (uint64, bool) {
	var sum uint64
	for _, v := range values {
		next := sum + v
		if next < sum {
			return 0, false
		}
		sum = next
	}
	return sum, true
}

// Len converts a non-negative length to uint64.
func Len(n int) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
