package pbotype

import "errors"

var (
	// ErrFormat is returned when the header is malformed or ends early.
	ErrFormat = errors.New("pbo: malformed header")

	// ErrIO is returned when the backing medium cannot serve a read.
	ErrIO = errors.New("pbo: i/o error")

	// ErrInvalidOperation is returned when a capability is misused.
	ErrInvalidOperation = errors.New("pbo: invalid operation")

	// ErrSizeOverflow is returned when a size does not fit a header field.
	ErrSizeOverflow = errors.New("pbo: size overflow")
)
