package batch

import (
	"io"
	"time"
)

// Item is one file to be written by a Sink.
type Item struct {
	// Path is the slash-separated destination path relative to the sink
	// root. It must satisfy fs.ValidPath.
	Path string

	// Size is the number of bytes Open produces.
	Size int64

	// ModTime is applied to the written file when the sink preserves times.
	// A zero ModTime is never applied.
	ModTime time.Time

	// Open returns a fresh reader over the item's content.
	Open func() (io.Reader, error)
}

// Sink receives item content during batch processing.
//
// Implementations determine where content is written and can filter which
// items to process.
type Sink interface {
	// ShouldProcess returns false if this item should be skipped.
	ShouldProcess(item *Item) bool

	// Writer returns a writer for the item's content.
	// The returned Committer must have Commit() called after a successful
	// write, or Discard() called on any error.
	Writer(item *Item) (Committer, error)
}

// Committer is a writer that can be committed or discarded.
//
// Implementations should stage writes until Commit is called. A file-based
// implementation writes to a temp file and renames it on Commit, or
// deletes it on Discard.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
