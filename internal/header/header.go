package header

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meigma/pbo/internal/ioutil"
	"github.com/meigma/pbo/internal/pbotype"
	"github.com/meigma/pbo/internal/sizing"
)

// fieldsSize is the size of the fixed part of a record after the name.
const fieldsSize = 20

// MaxStringLen bounds a single null-terminated string. Longer runs without a
// terminator are treated as a malformed header rather than read to exhaustion.
const MaxStringLen = 64 << 10

// Record is one header record as stored on disk.
type Record struct {
	Name         string
	Packing      pbotype.Packing
	OriginalSize uint32
	Reserved     uint32
	Timestamp    uint32
	DataSize     uint32
}

// Header is a decoded header.
type Header struct {
	// Products holds the product metadata strings in on-disk order.
	Products []string

	// ProductTimestamp is the timestamp field of the product record.
	ProductTimestamp uint32

	// Records holds the real-file records in on-disk order.
	Records []Record

	// DataOffset is the position of the first data byte, known only after
	// the sentinel has been read.
	DataOffset int64
}

// Read decodes a header from r, which must be positioned at the start of
// the archive. It consumes exactly the header bytes.
//
// Every failure, including a medium that ends before the sentinel, wraps
// pbotype.ErrFormat.
func Read(r io.Reader) (*Header, error) {
	cr := ioutil.NewCountingReader(r)
	h := &Header{}

	for i := 0; ; i++ {
		rec, err := ReadRecord(cr)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d at offset %d: %w", pbotype.ErrFormat, i, cr.N, err)
		}

		if rec.Packing == pbotype.PackingProductEntry {
			h.ProductTimestamp = rec.Timestamp
			if err := readProducts(cr, h); err != nil {
				return nil, fmt.Errorf("%w: product block at offset %d: %w", pbotype.ErrFormat, cr.N, err)
			}
			continue
		}

		if rec.Name == "" {
			break
		}

		// Producers are inconsistent about originalSize on stored entries.
		if rec.Packing == pbotype.PackingUncompressed {
			rec.OriginalSize = rec.DataSize
		}
		h.Records = append(h.Records, rec)
	}

	h.DataOffset = cr.N
	return h, nil
}

func readProducts(r io.ByteReader, h *Header) error {
	for {
		s, err := ReadString(r)
		if err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		h.Products = append(h.Products, s)
	}
}

// byteReader is what ReadRecord needs from its source.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// ReadRecord decodes a single record. A clean end of input before the first
// name byte is reported as io.ErrUnexpectedEOF like any other truncation,
// since a well-formed header always ends with the sentinel.
func ReadRecord(r byteReader) (Record, error) {
	name, err := ReadString(r)
	if err != nil {
		return Record{}, err
	}

	var buf [fieldsSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Record{}, unexpectedEOF(err)
	}

	return Record{
		Name:         name,
		Packing:      pbotype.Packing(binary.LittleEndian.Uint32(buf[0:4])),
		OriginalSize: binary.LittleEndian.Uint32(buf[4:8]),
		Reserved:     binary.LittleEndian.Uint32(buf[8:12]),
		Timestamp:    binary.LittleEndian.Uint32(buf[12:16]),
		DataSize:     binary.LittleEndian.Uint32(buf[16:20]),
	}, nil
}

// ReadString reads a null-terminated string.
func ReadString(r io.ByteReader) (string, error) {
	var sb strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", unexpectedEOF(err)
		}
		if c == 0 {
			return sb.String(), nil
		}
		if sb.Len() >= MaxStringLen {
			return "", fmt.Errorf("string exceeds %d bytes", MaxStringLen)
		}
		sb.WriteByte(c)
	}
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Write encodes h: the product block if any, every record, then the
// sentinel. It returns the number of bytes written, which is the data
// section offset of the written archive.
func Write(w io.Writer, h *Header) (int64, error) {
	cw := &ioutil.CountingWriter{W: w}

	if len(h.Products) > 0 {
		if err := WriteRecord(cw, Record{
			Packing:   pbotype.PackingProductEntry,
			Timestamp: h.ProductTimestamp,
		}); err != nil {
			return cw.N, err
		}
		for _, p := range h.Products {
			if p == "" {
				// An empty string would end the block early on read.
				return cw.N, fmt.Errorf("%w: empty product entry", pbotype.ErrInvalidOperation)
			}
			if err := WriteString(cw, p); err != nil {
				return cw.N, err
			}
		}
		if err := WriteString(cw, ""); err != nil {
			return cw.N, err
		}
	}

	for _, rec := range h.Records {
		if rec.Name == "" {
			return cw.N, fmt.Errorf("%w: empty entry name", pbotype.ErrInvalidOperation)
		}
		if err := WriteRecord(cw, rec); err != nil {
			return cw.N, err
		}
	}

	if err := WriteRecord(cw, Record{Packing: pbotype.PackingUncompressed}); err != nil {
		return cw.N, err
	}
	return cw.N, nil
}

// WriteRecord encodes a single record.
func WriteRecord(w io.Writer, rec Record) error {
	if err := WriteString(w, rec.Name); err != nil {
		return err
	}
	var buf [fieldsSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(rec.Packing))
	binary.LittleEndian.PutUint32(buf[4:8], rec.OriginalSize)
	binary.LittleEndian.PutUint32(buf[8:12], rec.Reserved)
	binary.LittleEndian.PutUint32(buf[12:16], rec.Timestamp)
	binary.LittleEndian.PutUint32(buf[16:20], rec.DataSize)
	_, err := w.Write(buf[:])
	return err
}

// WriteString writes s followed by a terminating zero byte.
func WriteString(w io.Writer, s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%w: string %q contains NUL", pbotype.ErrInvalidOperation, s)
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	_, err := w.Write(buf)
	return err
}

// Layout computes the data-section offset of every record, starting at base.
//
// Offsets can only be computed once the whole header is known, so this is
// the second pass of loading. mode selects whether each record advances the
// cursor by its logical or on-disk size.
func Layout(records []Record, base int64, mode pbotype.OffsetMode) ([]int64, error) {
	offsets := make([]int64, len(records))
	cursor := base
	for i, rec := range records {
		offsets[i] = cursor

		step := rec.OriginalSize
		if mode == pbotype.OffsetDataSize {
			step = rec.DataSize
		}
		next, ok := sizing.AddInt64(cursor, int64(step))
		if !ok {
			return nil, fmt.Errorf("%w: offset of %q", pbotype.ErrSizeOverflow, rec.Name)
		}
		cursor = next
	}
	return offsets, nil
}
