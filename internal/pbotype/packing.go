package pbotype

// Packing identifies how an entry is stored in the data section.
//
// The numeric values are the on-disk codes of the header record.
type Packing uint32

const (
	// PackingUncompressed stores entry bytes verbatim.
	PackingUncompressed Packing = 0x00000000

	// PackingPacked stores entry bytes LZSS-compressed.
	PackingPacked Packing = 0x43707273

	// PackingProductEntry marks the product metadata block. It never
	// describes a real file.
	PackingProductEntry Packing = 0x56657273
)

// String returns the human-readable name of the packing kind.
func (p Packing) String() string {
	switch p {
	case PackingUncompressed:
		return "uncompressed"
	case PackingPacked:
		return "packed"
	case PackingProductEntry:
		return "product"
	default:
		return "unknown"
	}
}

// OffsetMode selects how data-section offsets advance between entries.
type OffsetMode uint8

const (
	// OffsetOriginalSize advances by each entry's logical size.
	OffsetOriginalSize OffsetMode = iota

	// OffsetDataSize advances by each entry's on-disk span.
	OffsetDataSize
)

// String returns the human-readable name of the offset mode.
func (m OffsetMode) String() string {
	switch m {
	case OffsetOriginalSize:
		return "original"
	case OffsetDataSize:
		return "data"
	default:
		return "unknown"
	}
}
