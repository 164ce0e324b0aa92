package pbo

import "errors"

// Sentinel errors specific to the pbo package.
var (
	// ErrTooManyFiles is returned when AddFS exceeds its file limit.
	ErrTooManyFiles = errors.New("pbo: too many files")

	// ErrNoPath is returned by Save when the archive has no backing file.
	ErrNoPath = errors.New("pbo: archive has no backing path")
)
