package pbo

import (
	"github.com/meigma/pbo/internal/lzss"
	"github.com/meigma/pbo/internal/pbotype"
)

// Re-export types from internal/pbotype for public API.
type (
	// Packing identifies how an entry is stored on disk.
	Packing = pbotype.Packing

	// OffsetMode selects how data offsets advance while loading.
	OffsetMode = pbotype.OffsetMode

	// ProgressEvent represents a progress update during operations.
	ProgressEvent = pbotype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = pbotype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = pbotype.ProgressFunc
)

// Re-export packing constants.
const (
	PackingUncompressed = pbotype.PackingUncompressed
	PackingPacked       = pbotype.PackingPacked
	PackingProductEntry = pbotype.PackingProductEntry
)

// Re-export offset modes.
const (
	// OffsetOriginalSize advances each data offset by the previous entry's
	// logical size. This is the default.
	OffsetOriginalSize = pbotype.OffsetOriginalSize

	// OffsetDataSize advances each data offset by the previous entry's
	// on-disk span, as written by packers that store compressed entries
	// back to back.
	OffsetDataSize = pbotype.OffsetDataSize
)

// Re-export progress stage constants.
const (
	StagePacking    = pbotype.StagePacking
	StageSaving     = pbotype.StageSaving
	StageExtracting = pbotype.StageExtracting
)

// Sentinel errors re-exported from internal packages.
var (
	// ErrFormat is returned when a header is malformed or truncated.
	ErrFormat = pbotype.ErrFormat

	// ErrCorruptStream is returned when a packed entry references bytes
	// outside its decoded history.
	ErrCorruptStream = lzss.ErrCorruptStream

	// ErrIO is returned when an entry's data lies outside the medium.
	ErrIO = pbotype.ErrIO

	// ErrInvalidOperation is returned when an operation is not allowed in
	// the archive's current state.
	ErrInvalidOperation = pbotype.ErrInvalidOperation

	// ErrSizeOverflow is returned when a size does not fit the format.
	ErrSizeOverflow = pbotype.ErrSizeOverflow
)
