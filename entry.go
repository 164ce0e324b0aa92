package pbo

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/pbo/internal/sizing"
)

// Entry is one archive member.
//
// Entries are immutable. Load creates one per header record, AddEntry
// creates one per call, and Save replaces every entry with an in-memory
// copy of its bytes.
type Entry struct {
	name     string
	size     int64
	modTime  time.Time
	packing  Packing
	dataSize int64
	res      resolver
}

func newMemoryEntry(name string, data []byte, modTime time.Time) *Entry {
	return &Entry{
		name:     name,
		size:     int64(len(data)),
		modTime:  modTime,
		packing:  PackingUncompressed,
		dataSize: int64(len(data)),
		res:      memoryResolver{data: data},
	}
}

// Name returns the archive-relative name as stored, usually with
// backslash separators. Use NormalizePath for a slash-separated form.
func (e *Entry) Name() string { return e.name }

// Size returns the logical (decompressed) size in bytes.
func (e *Entry) Size() int64 { return e.size }

// ModTime returns the entry timestamp. A zero header timestamp yields the
// zero time.
func (e *Entry) ModTime() time.Time { return e.modTime }

// Packing returns how the entry is stored in its source. Entries added in
// memory and entries rewritten by Save report PackingUncompressed.
func (e *Entry) Packing() Packing { return e.packing }

// DataSize returns the number of bytes the entry occupies in its source.
func (e *Entry) DataSize() int64 { return e.dataSize }

// String returns the entry name.
func (e *Entry) String() string { return e.name }

// Open returns a fresh reader over the entry's logical bytes.
//
// Readers of file-backed entries read the archive medium directly and fail
// once the archive is closed. Readers of packed entries return
// ErrCorruptStream if the compressed data is damaged.
func (e *Entry) Open() (io.Reader, error) {
	r, err := e.res.resolve()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.name, err)
	}
	return r, nil
}

// ReadAll reads the entry's logical bytes.
//
// A medium or compressed stream that ends before Size bytes are produced is
// reported as io.ErrUnexpectedEOF. Size comes from the header and is not
// trusted for allocation: the buffer grows with the bytes actually read.
func (e *Entry) ReadAll() ([]byte, error) {
	var hint int64
	switch r := e.res.(type) {
	case memoryResolver:
		return append([]byte(nil), r.data...), nil
	case rawResolver:
		hint = r.available()
	case packedResolver:
		hint = r.available()
	case unresolvable:
	}

	r, err := e.Open()
	if err != nil {
		return nil, err
	}
	buf, err := sizing.ReadAllWithLimit(r, e.size, hint)
	if err != nil {
		if errors.Is(err, ErrCorruptStream) {
			return nil, fmt.Errorf("read %s: %w", e.name, err)
		}
		return nil, fmt.Errorf("read %s: %w: %w", e.name, ErrIO, err)
	}
	if int64(len(buf)) < e.size {
		return nil, fmt.Errorf("read %s: short read (%d of %d bytes): %w", e.name, len(buf), e.size, io.ErrUnexpectedEOF)
	}
	return buf, nil
}

// Digest returns the canonical content digest of the entry's logical bytes.
func (e *Entry) Digest() (digest.Digest, error) {
	data, err := e.ReadAll()
	if err != nil {
		return "", err
	}
	return digest.FromBytes(data), nil
}
