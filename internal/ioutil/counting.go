// Package ioutil provides small I/O adapters shared by the codec and writer.
package ioutil

import (
	"bufio"
	"errors"
	"io"
)

// ErrOverflow indicates a counter exceeded its maximum value.
var ErrOverflow = errors.New("counter overflow")

// CountingReader wraps a buffered reader and counts bytes consumed.
//
// The count reflects bytes handed to the caller, not bytes buffered ahead
// from the underlying source, so it is the logical stream position.
type CountingReader struct {
	r *bufio.Reader
	N int64
}

// NewCountingReader buffers r and starts counting at zero.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (cr *CountingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		if cr.N > (1<<63-1)-int64(n) {
			return n, ErrOverflow
		}
		cr.N += int64(n)
	}
	return n, err
}

// ReadByte implements io.ByteReader.
func (cr *CountingReader) ReadByte() (byte, error) {
	b, err := cr.r.ReadByte()
	if err != nil {
		return 0, err
	}
	cr.N++
	return b, nil
}

// CountingWriter wraps a writer and counts bytes written.
type CountingWriter struct {
	W io.Writer
	N int64
}

// Write implements io.Writer.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	if n > 0 {
		if cw.N > (1<<63-1)-int64(n) {
			return n, ErrOverflow
		}
		cw.N += int64(n)
	}
	return n, err
}
