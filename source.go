package pbo

import (
	"fmt"
	"io"
	"os"
)

// Source provides random access to archive bytes.
//
// Implementations must be safe for concurrent ReadAt calls; entries of one
// archive read from the source independently.
type Source interface {
	io.ReaderAt
	Size() int64
}

// fileSource wraps *os.File to implement Source.
// os.File has ReadAt but not Size, so we cache the size at construction.
type fileSource struct {
	file *os.File
	size int64
}

func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the size of the file when it was opened.
func (s *fileSource) Size() int64 {
	return s.size
}
