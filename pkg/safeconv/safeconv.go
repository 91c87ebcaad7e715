// Package safeconv provides checked integer conversions that panic on a
// bounds violation instead of truncating. Callers reach for them where an
// out-of-range value means broken bookkeeping rather than bad input.
package safeconv

import "math"

// MustIntToUint32 converts v to uint32, panicking when v is negative or
// exceeds the uint32 range.
func MustIntToUint32(v int) uint32 {
	if v < 0 || int64(v) > math.MaxUint32 {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}
