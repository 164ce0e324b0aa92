// Package pbo reads and writes PBO archives: a flat run of named,
// timestamped entries described by a header and followed by a contiguous
// data section.
//
// An archive is loaded from any [Source] (an io.ReaderAt with a size) or
// opened from a path. Entries are resolved lazily: nothing is read from the
// medium until an entry is opened. Packed entries are decompressed on the
// fly. Saving always writes uncompressed entries.
//
//	a, err := pbo.Open("addon.pbo")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	for _, e := range a.Entries() {
//	    data, err := e.ReadAll()
//	    // use data
//	}
//
// Save materializes every entry in memory before writing, so an archive can
// be saved over the file it was loaded from. An entry that cannot be read
// is written empty and reported in [SaveStats.Degraded] rather than
// aborting the save.
package pbo
