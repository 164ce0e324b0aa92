package pbo

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/meigma/pbo/internal/batch"
)

// ExtractStats reports the outcome of an extraction.
type ExtractStats struct {
	// Files is the number of files written.
	Files int

	// Skipped counts entries not written because the file existed or a
	// previous entry already claimed the same path.
	Skipped int

	// Bytes is the number of bytes written.
	Bytes uint64
}

// Extract writes every entry below destDir, creating it if needed.
//
// Entry names are converted to slash-separated paths with NormalizePath.
// A name that would escape destDir fails the whole extraction with a
// *fs.PathError wrapping fs.ErrInvalid before anything is written. When
// names collide after normalization, the first entry wins.
//
// Files are written to a temporary name and renamed into place, so a
// failed or cancelled extraction never leaves a partial file at a final
// path.
func (a *Archive) Extract(ctx context.Context, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	items := make([]*batch.Item, 0, len(a.entries))
	seen := make(map[string]struct{}, len(a.entries))
	duplicates := 0
	for _, e := range a.entries {
		p := NormalizePath(e.name)
		if !fs.ValidPath(p) || p == "." {
			return ExtractStats{}, &fs.PathError{Op: "extract", Path: e.name, Err: fs.ErrInvalid}
		}
		if _, dup := seen[p]; dup {
			a.log().Warn("duplicate entry path, keeping first", "name", e.name, "path", p)
			duplicates++
			continue
		}
		seen[p] = struct{}{}
		items = append(items, &batch.Item{
			Path:    p,
			Size:    e.size,
			ModTime: e.modTime,
			Open:    e.Open,
		})
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return ExtractStats{}, fmt.Errorf("create destination: %w", err)
	}

	sink, err := batch.NewFileSink(destDir,
		batch.WithOverwrite(cfg.overwrite),
		batch.WithPreserveTimes(cfg.preserveTimes),
	)
	if err != nil {
		return ExtractStats{}, err
	}
	defer sink.Close()

	procOpts := []batch.ProcessorOption{batch.WithWorkers(cfg.workers)}
	if cfg.progress != nil {
		procOpts = append(procOpts, batch.WithProcessorProgress(cfg.progress))
	}
	if a.logger != nil {
		procOpts = append(procOpts, batch.WithProcessorLogger(a.logger))
	}

	st, err := batch.NewProcessor(procOpts...).Process(ctx, items, sink)
	stats := ExtractStats{
		Files:   st.Processed,
		Skipped: st.Skipped + duplicates,
		Bytes:   st.TotalBytes,
	}
	if err != nil {
		return stats, fmt.Errorf("extract to %s: %w", destDir, err)
	}
	a.log().Debug("extracted archive", "dest", destDir, "files", stats.Files, "skipped", stats.Skipped)
	return stats, nil
}
