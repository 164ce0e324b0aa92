package pbo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/meigma/pbo/internal/header"
	"github.com/meigma/pbo/internal/pbotype"
)

// Archive is an ordered set of entries plus product metadata.
//
// Entry order is the on-disk order. Duplicate names are permitted by the
// format; lookups return the first match.
//
// Entries of a loaded archive read from its Source lazily and may be
// opened concurrently. Methods that mutate the archive (Add*, Save*, Close)
// are not safe for concurrent use.
type Archive struct {
	entries         []*Entry
	products        []string
	storeTimestamps bool

	src  Source
	file *os.File
	path string

	readOnly          bool
	offsetMode        OffsetMode
	overlappingCopies bool
	now               func() time.Time
	logger            *slog.Logger
	progress          ProgressFunc
}

// New returns an empty archive with no backing medium.
func New(opts ...Option) *Archive {
	a := &Archive{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load parses the archive stored in src.
//
// Entries are not read; they resolve against src on demand, so src must
// stay valid for as long as entries are read. A malformed header fails with
// ErrFormat and no archive is returned.
func Load(src Source, opts ...Option) (*Archive, error) {
	a := New(opts...)
	if err := a.load(src); err != nil {
		return nil, err
	}
	return a, nil
}

// Open opens the archive at path, creating an empty archive bound to path
// if the file is missing or empty. Close releases the file.
//
// With WithReadOnly(true) a missing or empty file fails with
// ErrInvalidOperation since the archive could never be saved.
func Open(path string, opts ...Option) (*Archive, error) {
	a := New(opts...)

	flag := os.O_RDWR | os.O_CREATE
	if a.readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		if a.readOnly && errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: cannot create %s without write access", ErrInvalidOperation, path)
		}
		return nil, err
	}

	src, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if src.Size() == 0 {
		if a.readOnly {
			f.Close()
			return nil, fmt.Errorf("%w: cannot create %s without write access", ErrInvalidOperation, path)
		}
		a.log().Debug("created empty archive", "path", path)
	} else if err := a.load(src); err != nil {
		f.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	a.file = f
	a.path = path
	return a, nil
}

// load reads the header in one pass, then lays out entries against the
// data section whose start is only known once the sentinel is read.
func (a *Archive) load(src Source) error {
	h, err := header.Read(io.NewSectionReader(src, 0, src.Size()))
	if err != nil {
		return err
	}

	offsets, err := header.Layout(h.Records, h.DataOffset, a.offsetMode)
	if err != nil {
		return err
	}

	entries := make([]*Entry, len(h.Records))
	for i, rec := range h.Records {
		rec.Name = a.repairString("entry name", rec.Name)
		entries[i] = a.fileEntry(src, rec, offsets[i])
	}
	for i, p := range h.Products {
		h.Products[i] = a.repairString("product entry", p)
	}

	a.entries = entries
	a.products = h.Products
	a.src = src
	a.log().Debug("loaded archive",
		"entries", len(entries),
		"products", len(h.Products),
		"data_offset", h.DataOffset,
		"offset_mode", a.offsetMode.String())
	return nil
}

// repairString replaces invalid UTF-8 in a string read from a header with
// U+FFFD, so names stay printable and round-trip through Save.
func (a *Archive) repairString(kind, s string) string {
	if utf8.ValidString(s) {
		return s
	}
	fixed := strings.ToValidUTF8(s, string(utf8.RuneError))
	a.log().Warn("invalid UTF-8 in header, replacing bytes", "kind", kind, "raw", fmt.Sprintf("%q", s), "name", fixed)
	return fixed
}

func (a *Archive) fileEntry(src Source, rec header.Record, offset int64) *Entry {
	s := span{src: src, offset: offset, length: int64(rec.DataSize)}

	var res resolver
	switch rec.Packing {
	case PackingPacked:
		res = packedResolver{span: s, size: int64(rec.OriginalSize), overlap: a.overlappingCopies}
	default:
		if rec.Packing != PackingUncompressed {
			a.log().Debug("unknown packing, reading raw", "name", rec.Name, "packing", uint32(rec.Packing))
		}
		res = rawResolver{span: s}
	}

	return &Entry{
		name:     rec.Name,
		size:     int64(rec.OriginalSize),
		modTime:  unixTime(rec.Timestamp),
		packing:  rec.Packing,
		dataSize: int64(rec.DataSize),
		res:      res,
	}
}

func unixTime(ts uint32) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(int64(ts), 0).UTC()
}

// Close releases the backing file, if any. Entries still backed by it
// fail with ErrInvalidOperation afterwards. Close is idempotent.
func (a *Archive) Close() error {
	if a.src == nil && a.file == nil {
		return nil
	}
	a.detach("archive closed")

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// detach replaces every entry that still reads from the backing medium
// with an unresolvable one and forgets the medium.
func (a *Archive) detach(reason string) {
	for i, e := range a.entries {
		switch e.res.(type) {
		case rawResolver, packedResolver:
			detached := *e
			detached.res = unresolvable{reason: reason}
			a.entries[i] = &detached
		case memoryResolver, unresolvable:
		}
	}
	a.src = nil
}

// Path returns the bound file path, or "" for archives without one.
func (a *Archive) Path() string { return a.path }

// Entries returns the entries in on-disk order. The slice is a copy; the
// entries themselves are shared.
func (a *Archive) Entries() []*Entry {
	return append([]*Entry(nil), a.entries...)
}

// All iterates over entries in on-disk order.
func (a *Archive) All() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, e := range a.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (a *Archive) Len() int { return len(a.entries) }

// Entry returns the first entry whose name matches name after
// normalization, so "data/a.txt" finds an entry stored as `data\a.txt`.
func (a *Archive) Entry(name string) (*Entry, bool) {
	want := NormalizePath(name)
	for _, e := range a.entries {
		if e.name == name || NormalizePath(e.name) == want {
			return e, true
		}
	}
	return nil, false
}

// AddEntry appends an in-memory entry timestamped with the current time.
// The archive keeps its own copy of data.
func (a *Archive) AddEntry(name string, data []byte) (*Entry, error) {
	return a.AddEntryWithTime(name, data, a.now())
}

// AddEntryWithTime appends an in-memory entry with an explicit timestamp.
//
// The name must be non-empty, must not contain NUL and must fit a header
// string. Data larger than 4 GiB fails with ErrSizeOverflow.
func (a *Archive) AddEntryWithTime(name string, data []byte, modTime time.Time) (*Entry, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: entry %q is %d bytes", ErrSizeOverflow, name, len(data))
	}
	e := newMemoryEntry(name, bytes.Clone(data), modTime)
	a.entries = append(a.entries, e)
	return e, nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty entry name", ErrInvalidOperation)
	case strings.IndexByte(name, 0) >= 0:
		return fmt.Errorf("%w: entry name %q contains NUL", ErrInvalidOperation, name)
	case len(name) > header.MaxStringLen:
		return fmt.Errorf("%w: entry name exceeds %d bytes", ErrInvalidOperation, header.MaxStringLen)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: entry name %q is not valid UTF-8", ErrInvalidOperation, name)
	}
	return nil
}

// SetStoreTimestamps controls whether Save writes real timestamps.
func (a *Archive) SetStoreTimestamps(enabled bool) { a.storeTimestamps = enabled }

// StoreTimestamps reports whether Save writes real timestamps.
func (a *Archive) StoreTimestamps() bool { return a.storeTimestamps }

// OffsetMode reports how data offsets were laid out on load.
func (a *Archive) OffsetMode() OffsetMode { return a.offsetMode }

func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

func (a *Archive) emitProgress(ev pbotype.ProgressEvent) {
	if a.progress != nil {
		a.progress(ev)
	}
}
