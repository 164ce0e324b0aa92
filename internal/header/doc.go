// Package header encodes and decodes the PBO header: a run of fixed-layout
// records, an optional product metadata block, and an end-of-header sentinel.
//
// All integers are little-endian u32. A record is
//
//	name\0 | packing | originalSize | reserved | timestamp | dataSize
//
// A record whose packing is the product code is followed by null-terminated
// strings up to an empty string. A record with an empty name and any other
// packing ends the header; the data section starts right after it.
package header
