package pbo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meigma/pbo/internal/header"
	"github.com/meigma/pbo/internal/pbotype"
	"github.com/meigma/pbo/internal/sizing"
)

// SaveStats reports the outcome of a save.
type SaveStats struct {
	// Entries is the number of entries written.
	Entries int

	// HeaderBytes is the size of the written header, which is also the
	// offset of the data section.
	HeaderBytes int64

	// DataBytes is the size of the written data section.
	DataBytes int64

	// Degraded lists entries whose data could not be read and were
	// written empty.
	Degraded []DegradedEntry
}

// DegradedEntry describes an entry written empty because it could not be
// read during Save.
type DegradedEntry struct {
	Name string
	Err  error
}

// Save writes the archive back to the file it was opened from.
//
// The archive is written to a temporary file in the same directory and
// renamed over the original, so a failed save leaves the original intact.
// Fails with ErrNoPath for archives without a backing file and with
// ErrInvalidOperation for read-only archives.
func (a *Archive) Save() (SaveStats, error) {
	if a.path == "" {
		return SaveStats{}, ErrNoPath
	}
	if a.readOnly {
		return SaveStats{}, fmt.Errorf("%w: archive %s is read-only", ErrInvalidOperation, a.path)
	}
	return a.saveFile(a.path)
}

// SaveAs writes the archive to path and binds the archive to it.
// Parent directories are created as needed.
func (a *Archive) SaveAs(path string) (SaveStats, error) {
	if path == "" {
		return SaveStats{}, ErrNoPath
	}
	stats, err := a.saveFile(path)
	if err != nil {
		return stats, err
	}
	a.path = path
	a.readOnly = false
	return stats, nil
}

// SaveTo writes the archive to w.
//
// Every entry is read into memory first and the archive's entries are
// replaced by the in-memory copies, so w may safely overwrite the medium
// the archive was loaded from.
func (a *Archive) SaveTo(w io.Writer) (SaveStats, error) {
	stats := a.materialize()
	if err := a.write(w, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (a *Archive) saveFile(path string) (SaveStats, error) {
	stats := a.materialize()

	// Nothing reads from the old file any more; release it so the rename
	// below can replace it on every platform.
	if err := a.Close(); err != nil {
		return stats, fmt.Errorf("close %s: %w", a.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return stats, fmt.Errorf("create archive directory: %w", err)
	}
	err := writeFileAtomic(path, func(w io.Writer) error {
		return a.write(w, &stats)
	})
	if err != nil {
		return stats, fmt.Errorf("write archive %s: %w", path, err)
	}

	a.log().Debug("saved archive",
		"path", path,
		"entries", stats.Entries,
		"bytes", stats.HeaderBytes+stats.DataBytes,
		"degraded", len(stats.Degraded))
	return stats, nil
}

// materialize replaces every entry with an in-memory copy of its bytes.
//
// An entry that fails to read is replaced by an empty entry and recorded in
// the returned stats; one damaged member does not block saving the rest.
func (a *Archive) materialize() SaveStats {
	var stats SaveStats
	for i, e := range a.entries {
		var (
			data []byte
			err  error
		)
		switch r := e.res.(type) {
		case memoryResolver:
			continue
		case rawResolver, packedResolver:
			data, err = e.ReadAll()
		case unresolvable:
			_, err = r.resolve()
		}
		if err != nil {
			a.log().Warn("entry unreadable, saving it empty", "name", e.name, "error", err)
			stats.Degraded = append(stats.Degraded, DegradedEntry{Name: e.name, Err: err})
			data = nil
		}
		a.entries[i] = newMemoryEntry(e.name, data, e.modTime)
	}
	return stats
}

// write encodes the materialized archive. All entries must be in memory.
func (a *Archive) write(w io.Writer, stats *SaveStats) error {
	var productTime uint32
	if a.storeTimestamps {
		productTime = sizing.UnixToUint32(a.now().Unix())
	}

	h := &header.Header{
		Products:         a.products,
		ProductTimestamp: productTime,
		Records:          make([]header.Record, 0, len(a.entries)),
	}
	payloads := make([][]byte, 0, len(a.entries))

	var total uint64
	for _, e := range a.entries {
		m, ok := e.res.(memoryResolver)
		if !ok {
			return fmt.Errorf("%w: entry %q not materialized", ErrInvalidOperation, e.name)
		}
		size, err := sizing.ToUint32(len(m.data), ErrSizeOverflow)
		if err != nil {
			return fmt.Errorf("entry %q: %w", e.name, err)
		}

		var ts uint32
		if a.storeTimestamps {
			ts = sizing.UnixToUint32(e.modTime.Unix())
		}
		h.Records = append(h.Records, header.Record{
			Name:         e.name,
			Packing:      PackingUncompressed,
			OriginalSize: size,
			Timestamp:    ts,
			DataSize:     size,
		})
		payloads = append(payloads, m.data)
		total += uint64(size)
	}

	bw := bufio.NewWriter(w)
	n, err := header.Write(bw, h)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	stats.HeaderBytes = n

	var done uint64
	for i, data := range payloads {
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("write entry %q: %w", a.entries[i].name, err)
		}
		done += uint64(len(data))
		stats.DataBytes += int64(len(data))
		stats.Entries++
		a.emitProgress(pbotype.ProgressEvent{
			Stage:        StageSaving,
			Name:         a.entries[i].name,
			BytesDone:    done,
			BytesTotal:   total,
			EntriesDone:  i + 1,
			EntriesTotal: len(payloads),
		})
	}
	return bw.Flush()
}

// writeFileAtomic streams the output of fill to a temp file then renames it
// to target, ensuring atomic replacement of the target file.
func writeFileAtomic(target string, fill func(io.Writer) error) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".pbo-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
