// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import (
	"bytes"
	"io"
	"math"
)

// ToUint32 converts a non-negative length to a u32 header field, returning
// overflowErr if it doesn't fit.
func ToUint32(n int, overflowErr error) (uint32, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(n), nil
}

// UnixToUint32 converts a Unix timestamp to a u32 header field. Values
// outside the representable range clamp to zero, which readers treat as
// "no timestamp".
func UnixToUint32(sec int64) uint32 {
	if sec <= 0 || sec > math.MaxUint32 {
		return 0
	}
	return uint32(sec)
}

// AddInt64 adds two non-negative int64 values, returning (result, false) on overflow.
func AddInt64(a, b int64) (int64, bool) {
	if b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}

// ReadAllWithLimit reads r until EOF or until maxSize bytes have been read,
// whichever comes first. Reading stops at maxSize without error; callers
// compare the length of the result with what they expected.
//
// The buffer starts at sizeHint (capped at maxSize) and grows with the data
// actually read, so an untrusted maxSize never causes a large allocation on
// its own.
func ReadAllWithLimit(r io.Reader, maxSize, sizeHint int64) ([]byte, error) {
	if maxSize <= 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if hint := min(sizeHint, maxSize); hint > 0 && hint < math.MaxInt32 {
		buf.Grow(int(hint))
	}
	if _, err := buf.ReadFrom(io.LimitReader(r, maxSize)); err != nil {
		return buf.Bytes(), err
	}
	return buf.Bytes(), nil
}
