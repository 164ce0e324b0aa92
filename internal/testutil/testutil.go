// Package testutil provides builders and fake media shared by tests.
package testutil

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/meigma/pbo/internal/header"
	"github.com/meigma/pbo/internal/pbotype"
)

// MockSource implements an in-memory medium for tests.
type MockSource struct {
	data []byte
}

// NewMockSource returns a medium backed by the provided data.
func NewMockSource(data []byte) *MockSource {
	return &MockSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockSource) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MockSource) Bytes() []byte {
	return m.data
}

// ErrInjected is returned by FailingSource reads past its failure point.
var ErrInjected = errors.New("injected read failure")

// FailingSource fails every read that starts at or beyond FailAt.
// Buffered header reads that begin earlier still succeed.
type FailingSource struct {
	*MockSource
	FailAt int64
}

// ReadAt implements io.ReaderAt.
func (f *FailingSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.FailAt {
		return 0, ErrInjected
	}
	return f.MockSource.ReadAt(p, off)
}

// TestEntry describes one record of a hand-built archive.
type TestEntry struct {
	Name    string
	Packing pbotype.Packing
	// OriginalSize defaults to len(Data) when zero.
	OriginalSize uint32
	Timestamp    uint32
	// Data is written to the data section verbatim.
	Data []byte
}

// BuildArchive encodes products and entries as an archive. Entry data is
// laid out back to back in record order.
func BuildArchive(tb testing.TB, products []string, entries []TestEntry) []byte {
	tb.Helper()

	h := &header.Header{Products: products}
	for _, e := range entries {
		orig := e.OriginalSize
		if orig == 0 {
			orig = uint32(len(e.Data)) //nolint:gosec // test data is small
		}
		h.Records = append(h.Records, header.Record{
			Name:         e.Name,
			Packing:      e.Packing,
			OriginalSize: orig,
			Timestamp:    e.Timestamp,
			DataSize:     uint32(len(e.Data)), //nolint:gosec // test data is small
		})
	}

	var buf bytes.Buffer
	if _, err := header.Write(&buf, h); err != nil {
		tb.Fatalf("write header: %v", err)
	}
	for _, e := range entries {
		buf.Write(e.Data)
	}
	return buf.Bytes()
}
