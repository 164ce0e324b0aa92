package pbo

import (
	"bytes"
	"fmt"
	"io"

	"github.com/meigma/pbo/internal/lzss"
)

// resolver produces a fresh reader over an entry's logical bytes.
//
// The set of implementations is closed: memoryResolver, rawResolver,
// packedResolver and unresolvable. Code that must treat them differently
// switches over all four.
type resolver interface {
	resolve() (io.Reader, error)
}

// memoryResolver serves bytes the archive owns.
type memoryResolver struct {
	data []byte
}

func (r memoryResolver) resolve() (io.Reader, error) {
	return bytes.NewReader(r.data), nil
}

// span locates an entry's stored bytes in the backing medium.
type span struct {
	src    Source
	offset int64
	length int64
}

// section returns a reader over the stored bytes. The end of the section is
// clamped to the medium so a truncated archive yields a short read rather
// than a read past the end.
func (s span) section() (*io.SectionReader, error) {
	size := s.src.Size()
	if s.offset > size {
		return nil, fmt.Errorf("%w: data offset %d beyond medium size %d", ErrIO, s.offset, size)
	}
	return io.NewSectionReader(s.src, s.offset, s.available()), nil
}

// available reports how many stored bytes the medium actually holds.
func (s span) available() int64 {
	size := s.src.Size()
	if s.offset >= size {
		return 0
	}
	return min(s.length, size-s.offset)
}

// rawResolver serves stored bytes verbatim.
type rawResolver struct {
	span
}

func (r rawResolver) resolve() (io.Reader, error) {
	return r.section()
}

// packedResolver decompresses stored bytes on the fly, stopping at the
// entry's logical size so the trailing checksum is never decoded.
type packedResolver struct {
	span
	size    int64
	overlap bool
}

func (r packedResolver) resolve() (io.Reader, error) {
	sr, err := r.section()
	if err != nil {
		return nil, err
	}
	return lzss.NewReader(sr,
		lzss.WithOutputLimit(r.size),
		lzss.WithOverlappingCopies(r.overlap),
	), nil
}

// unresolvable marks an entry whose bytes cannot be produced.
type unresolvable struct {
	reason string
}

func (r unresolvable) resolve() (io.Reader, error) {
	return nil, fmt.Errorf("%w: entry is not resolvable: %s", ErrInvalidOperation, r.reason)
}
