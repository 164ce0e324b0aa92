// Package lzss decodes the byte-wise LZSS variant used for packed PBO entries.
//
// A stream is a sequence of groups. Each group is one control byte followed
// by eight slots read low bit first: a set bit is a literal byte, a clear bit
// is a two-byte little-endian pointer p with
//
//	distance = (p & 0x00FF) + ((p & 0xF000) >> 4)
//	length   = ((p & 0x0F00) >> 8) + 3
//
// Distance counts back from the history cursor, so the largest reachable
// history is 4095 bytes.
//
// By default a group's output joins the history only once the whole group
// is decoded, and a pointer is valid only if distance+length fits in the
// history present at the start of its group. WithOverlappingCopies selects
// the per-byte history of the LZSS:8bit packers instead.
package lzss

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	// WindowSize is the capacity of the history buffer.
	WindowSize = 8192

	// HistorySize is the history retained when the window is compacted.
	// It covers the largest distance a pointer can encode.
	HistorySize = 4096

	// MinMatch is the bias applied to stored pointer lengths.
	MinMatch = 3

	// maxGroupOutput is the most a single group can produce: eight
	// pointers of the longest length.
	maxGroupOutput = 8 * (0x0F + MinMatch)
)

// ErrCorruptStream is returned when a back-reference points outside the
// decoded history.
var ErrCorruptStream = errors.New("pbo: corrupt compressed stream")

// Reader decompresses a stream lazily.
//
// Reads decode only as many groups as needed to fill the caller's buffer.
// Bytes a group produces beyond that are kept as overflow and served first
// by the next Read. A Reader is not safe for concurrent use.
type Reader struct {
	src      io.ByteReader
	window   [WindowSize]byte
	pos      int
	group    []byte
	overflow []byte
	spare    []byte
	limit    int64
	produced int64
	overlap  bool
	err      error
}

// Option configures a Reader.
type Option func(*Reader)

// WithOutputLimit stops decoding after n bytes. Packed entries are followed
// by a checksum that must not be decoded as a group, so readers of an entry
// should always pass its logical size. A negative n disables the limit.
func WithOutputLimit(n int64) Option {
	return func(r *Reader) {
		r.limit = n
	}
}

// WithOverlappingCopies adds every decoded byte to the history as soon as
// it is produced. Pointers may then reach into their own group and copy
// more bytes than their distance, repeating the most recent output; only a
// distance beyond the history is corrupt.
func WithOverlappingCopies(enabled bool) Option {
	return func(r *Reader) {
		r.overlap = enabled
	}
}

// NewReader returns a Reader decoding from r. The caller is responsible for
// positioning r at the start of the compressed data.
func NewReader(r io.Reader, opts ...Option) *Reader {
	d := &Reader{
		group: make([]byte, 0, maxGroupOutput),
		limit: -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset(r)
	return d
}

// Reset discards all state and decodes from r. Options are kept.
func (d *Reader) Reset(r io.Reader) {
	if br, ok := r.(io.ByteReader); ok {
		d.src = br
	} else {
		d.src = bufio.NewReader(r)
	}
	d.pos = 0
	d.group = d.group[:0]
	d.overflow = nil
	d.produced = 0
	d.err = nil
}

// Read implements io.Reader.
//
// End of the compressed input is not an error: Read returns whatever was
// decoded so far and io.EOF once nothing is left. ErrCorruptStream is
// sticky and returned together with any bytes decoded before it.
func (d *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	if len(d.overflow) > 0 {
		c := copy(p, d.overflow)
		d.overflow = d.overflow[c:]
		n += c
		if n == len(p) {
			return n, nil
		}
	}

	for n < len(p) && d.err == nil {
		d.err = d.decodeGroup()

		c := copy(p[n:], d.group)
		n += c
		if c < len(d.group) {
			d.spare = append(d.spare[:0], d.group[c:]...)
			d.overflow = d.spare
		}
	}

	if d.err == nil {
		return n, nil
	}
	if errors.Is(d.err, io.EOF) {
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, d.err
}

// Remaining reports bytes decoded but not yet returned by Read.
func (d *Reader) Remaining() int {
	return len(d.overflow)
}

// decodeGroup decodes one control byte and its slots into d.group.
// Upstream exhaustion at any point ends the group and returns io.EOF;
// the slots decoded before it are kept.
func (d *Reader) decodeGroup() error {
	d.group = d.group[:0]
	if d.done() {
		return io.EOF
	}

	flags, err := d.src.ReadByte()
	if err != nil {
		return endOfInput(err)
	}

	err = d.decodeSlots(flags)
	if !d.overlap {
		d.commitGroup()
	}
	return err
}

func (d *Reader) decodeSlots(flags byte) error {
	for bit := range 8 {
		if d.done() {
			return nil
		}

		if flags&(1<<bit) != 0 {
			c, err := d.src.ReadByte()
			if err != nil {
				return endOfInput(err)
			}
			d.emit(c)
			continue
		}

		lo, err := d.src.ReadByte()
		if err != nil {
			return endOfInput(err)
		}
		hi, err := d.src.ReadByte()
		if err != nil {
			return endOfInput(err)
		}
		if err := d.copyBack(DecodePointer(lo, hi)); err != nil {
			return err
		}
	}
	return nil
}

// copyBack replays length bytes starting distance bytes behind the history
// cursor.
//
// Without overlapping copies the history is frozen for the whole group:
// the pointer must satisfy distance+length <= history, and it may not read
// past the cursor, so length must not exceed distance.
func (d *Reader) copyBack(distance, length int) error {
	if d.overlap {
		if distance == 0 || distance > d.pos {
			return d.corrupt(distance, length)
		}
		for range length {
			if d.done() {
				return nil
			}
			d.emit(d.window[d.pos-distance])
		}
		return nil
	}

	if distance < length || distance+length > d.pos {
		return d.corrupt(distance, length)
	}
	start := d.pos - distance
	for i := range length {
		if d.done() {
			return nil
		}
		d.emit(d.window[start+i])
	}
	return nil
}

func (d *Reader) corrupt(distance, length int) error {
	return fmt.Errorf("%w: back-reference distance %d length %d with %d bytes of history",
		ErrCorruptStream, distance, length, d.pos)
}

// emit appends c to the current group. With overlapping copies it also
// enters the history at once, compacting the window to its most recent
// HistorySize bytes when it is full.
func (d *Reader) emit(c byte) {
	d.group = append(d.group, c)
	d.produced++
	if !d.overlap {
		return
	}
	if d.pos == WindowSize {
		copy(d.window[:HistorySize], d.window[WindowSize-HistorySize:])
		d.pos = HistorySize
	}
	d.window[d.pos] = c
	d.pos++
}

// commitGroup appends the finished group to the history. When the window
// cannot hold it, the history is first cut so that HistorySize bytes
// remain once the group is in.
func (d *Reader) commitGroup() {
	n := len(d.group)
	if d.pos+n > WindowSize {
		keep := HistorySize - n
		copy(d.window[:keep], d.window[d.pos-keep:d.pos])
		d.pos = keep
	}
	d.pos += copy(d.window[d.pos:], d.group)
}

func (d *Reader) done() bool {
	return d.limit >= 0 && d.produced >= d.limit
}

// DecodePointer splits a stored back-reference into distance and length.
func DecodePointer(lo, hi byte) (distance, length int) {
	p := int(lo) | int(hi)<<8
	distance = (p & 0x00FF) + ((p & 0xF000) >> 4)
	length = ((p & 0x0F00) >> 8) + MinMatch
	return distance, length
}

func endOfInput(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}
