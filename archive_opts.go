package pbo

import (
	"log/slog"
	"time"
)

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for load and save diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithStoreTimestamps controls whether Save writes entry and product
// timestamps. When disabled (the default) every timestamp is written as zero.
func WithStoreTimestamps(enabled bool) Option {
	return func(a *Archive) {
		a.storeTimestamps = enabled
	}
}

// WithReadOnly opens the backing file without write access. Save on a
// read-only archive fails with ErrInvalidOperation, and Open fails if the
// file is empty or missing since there is nothing to read.
func WithReadOnly(enabled bool) Option {
	return func(a *Archive) {
		a.readOnly = enabled
	}
}

// WithOffsetMode selects how data offsets advance while loading.
// The default is OffsetOriginalSize.
func WithOffsetMode(mode OffsetMode) Option {
	return func(a *Archive) {
		a.offsetMode = mode
	}
}

// WithOverlappingCopies decodes packed entries with a per-byte history, so
// a back-reference may reach into its own group and repeat bytes it has
// just produced. Some third-party packers emit such streams. By default a
// group's output becomes history only once the group is complete, and such
// references fail with ErrCorruptStream.
func WithOverlappingCopies(enabled bool) Option {
	return func(a *Archive) {
		a.overlappingCopies = enabled
	}
}

// WithClock overrides the time source used for product timestamps and
// entries added without an explicit time.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		if now != nil {
			a.now = now
		}
	}
}

// WithProgress sets a callback invoked as Save writes entry data.
// The callback must be safe for concurrent calls.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Archive) {
		a.progress = fn
	}
}
