package testutil

// LZSSBuilder assembles a compressed stream group by group.
//
// Every eight slots share a control byte; bit i set means slot i is a
// literal, clear means a two-byte back-reference. Unused slots of the last
// group stay clear, so a decoder without an output limit sees them as
// back-references cut short by end of input.
type LZSSBuilder struct {
	out     []byte
	flagPos int
	slot    int
}

// NewLZSSBuilder returns an empty builder.
func NewLZSSBuilder() *LZSSBuilder {
	return &LZSSBuilder{slot: 8}
}

// claim reserves the next slot and returns its control bit.
func (b *LZSSBuilder) claim() byte {
	if b.slot == 8 {
		b.out = append(b.out, 0)
		b.flagPos = len(b.out) - 1
		b.slot = 0
	}
	bit := byte(1) << b.slot
	b.slot++
	return bit
}

// Literal appends one literal slot per byte.
func (b *LZSSBuilder) Literal(data ...byte) *LZSSBuilder {
	for _, c := range data {
		bit := b.claim()
		b.out[b.flagPos] |= bit
		b.out = append(b.out, c)
	}
	return b
}

// Ref appends a back-reference copying length bytes from distance bytes
// behind the current output position. length must be in [3, 18] and
// distance in [0, 4095].
func (b *LZSSBuilder) Ref(distance, length int) *LZSSBuilder {
	b.claim()
	lo, hi := EncodePointer(distance, length)
	b.out = append(b.out, lo, hi)
	return b
}

// Raw appends bytes outside the slot structure, such as a trailing checksum.
func (b *LZSSBuilder) Raw(data ...byte) *LZSSBuilder {
	b.out = append(b.out, data...)
	b.slot = 8
	return b
}

// Bytes returns the encoded stream.
func (b *LZSSBuilder) Bytes() []byte {
	return b.out
}

// EncodePointer packs a back-reference as stored on disk: the low byte holds
// distance bits 0-7, the high byte holds distance bits 8-11 in its upper
// nibble and length-3 in its lower nibble.
func EncodePointer(distance, length int) (lo, hi byte) {
	lo = byte(distance & 0xFF)
	hi = byte((distance>>4)&0xF0) | byte((length-3)&0x0F)
	return lo, hi
}

// CompressLiterals encodes data as an all-literal stream.
func CompressLiterals(data []byte) []byte {
	return NewLZSSBuilder().Literal(data...).Bytes()
}
