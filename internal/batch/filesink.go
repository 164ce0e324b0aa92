package batch

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSink writes items below a destination directory.
//
// Every file operation goes through one os.Root opened on the destination,
// so an item path cannot escape it, even through symlinks planted inside.
// Content is staged in a temporary file next to its target and renamed
// into place on Commit.
//
// A FileSink is safe for concurrent use. Close releases the root.
type FileSink struct {
	root          *os.Root
	overwrite     bool
	preserveTimes bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite replaces existing files instead of skipping them.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithPreserveTimes applies item modification times to written files.
func WithPreserveTimes(preserve bool) FileSinkOption {
	return func(s *FileSink) {
		s.preserveTimes = preserve
	}
}

// NewFileSink opens destDir, which must exist, as the sink root.
func NewFileSink(destDir string, opts ...FileSinkOption) (*FileSink, error) {
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, fmt.Errorf("open destination %s: %w", destDir, err)
	}
	s := &FileSink{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the destination root.
func (s *FileSink) Close() error {
	return s.root.Close()
}

// ShouldProcess reports whether item's target is free, or overwriting is
// enabled. Paths the root refuses are never free.
func (s *FileSink) ShouldProcess(item *Item) bool {
	if s.overwrite {
		return true
	}
	_, err := s.root.Lstat(filepath.FromSlash(item.Path))
	return errors.Is(err, fs.ErrNotExist)
}

// Writer stages item's content in a temporary file.
func (s *FileSink) Writer(item *Item) (Committer, error) {
	if !fs.ValidPath(item.Path) || item.Path == "." {
		return nil, &fs.PathError{Op: "extract", Path: item.Path, Err: fs.ErrInvalid}
	}
	rel := filepath.FromSlash(item.Path)
	dir := filepath.Dir(rel)

	if err := s.root.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", item.Path, err)
	}
	f, tmp, err := s.createTemp(dir)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", item.Path, err)
	}
	return &fileCommitter{sink: s, item: item, rel: rel, tmp: tmp, f: f}, nil
}

// createTemp creates an exclusive, private file in dir.
func (s *FileSink) createTemp(dir string) (*os.File, string, error) {
	for range 10 {
		name := filepath.Join(dir, ".pbo-"+rand.Text())
		f, err := s.root.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("no unused temp file name")
}

type fileCommitter struct {
	sink *FileSink
	item *Item
	rel  string
	tmp  string
	f    *os.File
}

func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.f.Write(p)
}

// Commit publishes the staged file at its final path. On failure the
// staged file is removed and the target is left untouched.
func (c *fileCommitter) Commit() error {
	if err := c.publish(); err != nil {
		_ = c.sink.root.Remove(c.tmp) //nolint:errcheck // best-effort cleanup
		return err
	}
	return nil
}

func (c *fileCommitter) publish() error {
	root := c.sink.root
	if err := c.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.item.Path, err)
	}
	if err := root.Chmod(c.tmp, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", c.item.Path, err)
	}
	if c.sink.preserveTimes && !c.item.ModTime.IsZero() {
		if err := root.Chtimes(c.tmp, c.item.ModTime, c.item.ModTime); err != nil {
			return fmt.Errorf("chtimes %s: %w", c.item.Path, err)
		}
	}
	// Rename would replace an empty directory on some platforms.
	if info, err := root.Lstat(c.rel); err == nil && info.IsDir() {
		return &fs.PathError{Op: "extract", Path: c.item.Path, Err: errors.New("is a directory")}
	}
	if err := root.Rename(c.tmp, c.rel); err != nil {
		return fmt.Errorf("rename to %s: %w", c.item.Path, err)
	}
	return nil
}

// Discard drops the staged file.
func (c *fileCommitter) Discard() error {
	_ = c.f.Close() //nolint:errcheck // the file is being removed
	return c.sink.root.Remove(c.tmp)
}
