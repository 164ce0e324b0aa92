package pbo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/meigma/pbo/internal/pbotype"
)

// AddDir adds every regular file below dir. See AddFS.
//
// The walk is confined to dir with os.OpenRoot; symbolic links are not
// followed.
func (a *Archive) AddDir(ctx context.Context, dir string, opts ...AddOption) (int, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return 0, err
	}
	defer root.Close()

	return a.AddFS(ctx, root.FS(), opts...)
}

// AddFS adds every regular file in fsys as an in-memory entry, walking in
// lexical order. Empty directories and non-regular files are skipped.
//
// Entry names are the walked paths joined with the configured separator
// and prepended with the configured prefix. Each entry takes the file's
// modification time. AddFS returns the number of entries added; entries
// added before an error stay in the archive.
//
// The context is checked between files.
func (a *Archive) AddFS(ctx context.Context, fsys fs.FS, opts ...AddOption) (int, error) {
	cfg := addConfig{separator: DefaultSeparator}
	for _, opt := range opts {
		opt(&cfg)
	}
	maxFiles := cfg.maxFiles
	if maxFiles == 0 {
		maxFiles = DefaultMaxFiles
	}

	added := 0
	var bytesDone uint64
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			a.log().Debug("skipping non-regular file", "path", path, "type", d.Type().String())
			return nil
		}
		if cfg.shouldSkip(path, d) {
			return nil
		}
		if maxFiles > 0 && added >= maxFiles {
			return ErrTooManyFiles
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		name := cfg.prefix + strings.ReplaceAll(path, "/", cfg.separator)
		if cfg.transform != nil {
			data, err = cfg.transform(name, data)
			if err != nil {
				return fmt.Errorf("transform %s: %w", path, err)
			}
		}

		if _, err := a.AddEntryWithTime(name, data, info.ModTime()); err != nil {
			return err
		}
		added++
		bytesDone += uint64(len(data))
		if cfg.progress != nil {
			cfg.progress(pbotype.ProgressEvent{
				Stage:       StagePacking,
				Name:        name,
				BytesDone:   bytesDone,
				EntriesDone: added,
			})
		}
		return nil
	})
	if err != nil {
		return added, err
	}

	a.log().Debug("added files", "count", added, "bytes", bytesDone)
	return added, nil
}

func (cfg *addConfig) shouldSkip(path string, d fs.DirEntry) bool {
	for _, fn := range cfg.skip {
		if fn != nil && fn(path, d) {
			return true
		}
	}
	return false
}
