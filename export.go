package pbo

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
)

// ExportOption configures ExportTar.
type ExportOption func(*exportConfig)

type exportConfig struct {
	zstd  bool
	level zstd.EncoderLevel
}

// ExportWithZstd compresses the tar stream with zstd at the given level
// (1-22, as accepted by the zstd command). Zero selects the default level.
func ExportWithZstd(level int) ExportOption {
	return func(c *exportConfig) {
		c.zstd = true
		c.level = zstd.SpeedDefault
		if level > 0 {
			c.level = zstd.EncoderLevelFromZstd(level)
		}
	}
}

// paxProductPrefix namespaces product entries in the tar global header.
const paxProductPrefix = "PBO.product."

// ExportTar writes the archive as a tar stream.
//
// Entry names are converted with NormalizePath; a name that is not a valid
// relative path fails with a *fs.PathError wrapping fs.ErrInvalid. Product
// entries are carried in a leading PAX global header as
// PBO.product.<index> records.
func (a *Archive) ExportTar(w io.Writer, opts ...ExportOption) error {
	var cfg exportConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	out := w
	var enc *zstd.Encoder
	if cfg.zstd {
		var err error
		enc, err = zstd.NewWriter(w, zstd.WithEncoderLevel(cfg.level))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		out = enc
	}

	if err := a.writeTar(out); err != nil {
		if enc != nil {
			enc.Close()
		}
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close zstd encoder: %w", err)
		}
	}
	return nil
}

func (a *Archive) writeTar(w io.Writer) error {
	tw := tar.NewWriter(w)

	if len(a.products) > 0 {
		records := make(map[string]string, len(a.products))
		for i, p := range a.products {
			records[paxProductPrefix+strconv.Itoa(i)] = p
		}
		if err := tw.WriteHeader(&tar.Header{
			Typeflag:   tar.TypeXGlobalHeader,
			PAXRecords: records,
			Format:     tar.FormatPAX,
		}); err != nil {
			return fmt.Errorf("write product header: %w", err)
		}
	}

	for _, e := range a.entries {
		name := NormalizePath(e.name)
		if !fs.ValidPath(name) || name == "." {
			return &fs.PathError{Op: "export", Path: e.name, Err: fs.ErrInvalid}
		}

		modTime := e.modTime
		if modTime.IsZero() {
			modTime = time.Unix(0, 0)
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0o644,
			Size:     e.size,
			ModTime:  modTime,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header for %s: %w", e.name, err)
		}

		r, err := e.Open()
		if err != nil {
			return err
		}
		n, err := io.Copy(tw, io.LimitReader(r, e.size))
		if err != nil {
			return fmt.Errorf("export %s: %w", e.name, err)
		}
		if n != e.size {
			return fmt.Errorf("export %s: short read (%d of %d bytes): %w", e.name, n, e.size, io.ErrUnexpectedEOF)
		}
	}
	return tw.Close()
}
