package pbo

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/pbo/internal/header"
	"github.com/meigma/pbo/internal/testutil"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

// loadTestArchive builds an archive from entries and loads it.
func loadTestArchive(t *testing.T, products []string, entries []testutil.TestEntry, opts ...Option) *Archive {
	t.Helper()
	raw := testutil.BuildArchive(t, products, entries)
	a, err := Load(testutil.NewMockSource(raw), opts...)
	require.NoError(t, err)
	return a
}

func readEntry(t *testing.T, a *Archive, name string) []byte {
	t.Helper()
	e, ok := a.Entry(name)
	require.True(t, ok, "entry %q not found", name)
	data, err := e.ReadAll()
	require.NoError(t, err)
	return data
}

func TestLoadSentinelOnly(t *testing.T) {
	t.Parallel()

	a, err := Load(testutil.NewMockSource(make([]byte, 21)))
	require.NoError(t, err)
	assert.Zero(t, a.Len())
	assert.Empty(t, a.ProductEntries())
}

func TestLoadMalformedHeader(t *testing.T) {
	t.Parallel()

	raw := testutil.BuildArchive(t, nil, []testutil.TestEntry{
		{Name: "a.txt", Data: []byte("hello")},
	})
	// Cut inside the sentinel.
	a, err := Load(testutil.NewMockSource(raw[:len(raw)-5-10]))
	require.ErrorIs(t, err, ErrFormat)
	assert.Nil(t, a)
}

func TestLoadEntries(t *testing.T) {
	t.Parallel()

	a := loadTestArchive(t, []string{"prefix", `x\addon`}, []testutil.TestEntry{
		{Name: "a.txt", Data: []byte("hello"), Timestamp: 1700000000},
		{Name: `dir\b.txt`, Data: []byte("world!")},
	})

	require.Equal(t, 2, a.Len())
	entries := a.Entries()
	assert.Equal(t, "a.txt", entries[0].Name())
	assert.Equal(t, int64(5), entries[0].Size())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), entries[0].ModTime())
	assert.Equal(t, PackingUncompressed, entries[0].Packing())
	assert.True(t, entries[1].ModTime().IsZero())

	assert.Equal(t, "hello", string(readEntry(t, a, "a.txt")))
	assert.Equal(t, "world!", string(readEntry(t, a, `dir\b.txt`)))
	assert.Equal(t, []string{"prefix", `x\addon`}, a.ProductEntries())
}

func TestLoadUncompressedIgnoresOriginalSize(t *testing.T) {
	t.Parallel()

	a := loadTestArchive(t, nil, []testutil.TestEntry{
		{Name: "a.txt", Data: []byte("hello"), OriginalSize: 99},
		{Name: "b.txt", Data: []byte("next")},
	})
	assert.Equal(t, "hello", string(readEntry(t, a, "a.txt")))
	assert.Equal(t, "next", string(readEntry(t, a, "b.txt")))
}

func TestLoadRepairsInvalidUTF8(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	raw := testutil.BuildArchive(t, []string{"prefix", "x\xfe\xffaddon"}, []testutil.TestEntry{
		{Name: "a\xffb.txt", Data: []byte("one")},
		{Name: "ok.txt", Data: []byte("two")},
	})
	a, err := Load(testutil.NewMockSource(raw),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	names := make([]string, 0, a.Len())
	for e := range a.All() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a\uFFFDb.txt", "ok.txt"}, names)
	assert.Equal(t, []string{"prefix", "x\uFFFDaddon"}, a.ProductEntries())
	assert.Equal(t, "one", string(readEntry(t, a, "a\uFFFDb.txt")))
	assert.Contains(t, logs.String(), "invalid UTF-8")

	// The repaired archive saves and reloads cleanly.
	var buf bytes.Buffer
	_, err = a.SaveTo(&buf)
	require.NoError(t, err)
	b, err := Load(testutil.NewMockSource(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "one", string(readEntry(t, b, "a\uFFFDb.txt")))
}

func TestEntryLookupNormalizesSeparators(t *testing.T) {
	t.Parallel()

	a := loadTestArchive(t, nil, []testutil.TestEntry{
		{Name: `dir\b.txt`, Data: []byte("one")},
		{Name: `dir\b.txt`, Data: []byte("two")},
	})

	e, ok := a.Entry("dir/b.txt")
	require.True(t, ok)
	assert.Equal(t, `dir\b.txt`, e.Name())
	// Duplicates are legal; the first match wins.
	assert.Equal(t, "one", string(readEntry(t, a, `dir\b.txt`)))

	_, ok = a.Entry("missing.txt")
	assert.False(t, ok)
}

func TestAllIteratesInOrder(t *testing.T) {
	t.Parallel()

	a := New()
	for _, name := range []string{"c", "a", "b"} {
		_, err := a.AddEntry(name, []byte(name))
		require.NoError(t, err)
	}

	var names []string
	for e := range a.All() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestLoadPackedEntry(t *testing.T) {
	t.Parallel()

	stream := testutil.NewLZSSBuilder().
		Raw(0xDE, 0xAD, 0xBE, 0xEF).
		Bytes()

	a := loadTestArchive(t, nil, []testutil.TestEntry{
		{Name: "p.bin", Packing: PackingPacked, OriginalSize: 11, Data: stream},
	})

	e, ok := a.Entry("p.bin")
	require.True(t, ok)
	assert.Equal(t, PackingPacked, e.Packing())
	assert.Equal(t, int64(11), e.Size())
	assert.Equal(t, int64(len(stream)), e.DataSize())
	assert.Equal(t, "abcdefghdef", string(readEntry(t, a, "p.bin")))
}

func TestLoadOffsetModes(t *testing.T) {
	t.Parallel()

	stream := testutil.NewLZSSBuilder().Literal([]byte("abcdefgh")...).Ref(5, 3).Raw(1, 2, 3, 4).Bytes()
	entries := []testutil.TestEntry{
		{Name: "p.bin", Packing: PackingPacked, OriginalSize: 11, Data: stream},
		{Name: "r.txt", Data: []byte("raw!")},
	}

	byData := loadTestArchive(t, nil, entries, WithOffsetMode(OffsetDataSize))
	assert.Equal(t, OffsetDataSize, byData.OffsetMode())
	assert.Equal(t, "abcdefghdef", string(readEntry(t, byData, "p.bin")))
	assert.Equal(t, "raw!", string(readEntry(t, byData, "r.txt")))

	// Advancing by logical size lands inside the compressed stream.
	byOriginal := loadTestArchive(t, nil, entries)
	assert.Equal(t, "abcdefghdef", string(readEntry(t, byOriginal, "p.bin")))
	assert.NotEqual(t, "raw!", string(readEntry(t, byOriginal, "r.txt")))
}

func TestCorruptPackedEntry(t *testing.T) {
	t.Parallel()

	stream := testutil.NewLZSSBuilder().Literal('a').Ref(9, 3).Bytes()
	a := loadTestArchive(t, nil, []testutil.TestEntry{
		{Name: "bad.bin", Packing: PackingPacked, OriginalSize: 4, Data: stream},
	})

	e, _ := a.Entry("bad.bin")
	_, err := e.ReadAll()
	require.ErrorIs(t, err, ErrCorruptStream)
	assert.NotErrorIs(t, err, ErrIO)
}

func TestOverlappingCopiesOption(t *testing.T) {
	t.Parallel()

	// Both references read bytes produced earlier in their own group.
	entries := []testutil.TestEntry{
		{
			Name: "rep.bin", Packing: PackingPacked, OriginalSize: 8,
			Data: testutil.NewLZSSBuilder().Literal('a', 'b').Ref(2, 6).Bytes(),
		},
		{
			Name: "short.bin", Packing: PackingPacked, OriginalSize: 6,
			Data: []byte{0x03, 'A', 'B', 0x02, 0x01},
		},
	}

	byGroup := loadTestArchive(t, nil, entries, WithOffsetMode(OffsetDataSize))
	for _, name := range []string{"rep.bin", "short.bin"} {
		e, _ := byGroup.Entry(name)
		_, err := e.ReadAll()
		require.ErrorIs(t, err, ErrCorruptStream, name)
	}

	overlapping := loadTestArchive(t, nil, entries,
		WithOffsetMode(OffsetDataSize), WithOverlappingCopies(true))
	assert.Equal(t, "abababab", string(readEntry(t, overlapping, "rep.bin")))
	assert.Equal(t, "ABABAB", string(readEntry(t, overlapping, "short.bin")))
}

func TestEntryBeyondMedium(t *testing.T) {
	t.Parallel()

	raw := testutil.BuildArchive(t, nil, []testutil.TestEntry{
		{Name: "a.txt", Data: []byte("hello")},
		{Name: "b.txt", Data: []byte("world!")},
	})
	// Keep only three data bytes: a is short, b starts past the end.
	a, err := Load(testutil.NewMockSource(raw[:len(raw)-11+3]))
	require.NoError(t, err)

	ea, _ := a.Entry("a.txt")
	_, err = ea.ReadAll()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	eb, _ := a.Entry("b.txt")
	_, err = eb.Open()
	require.ErrorIs(t, err, ErrIO)
}

// Not parallel: the allocation check reads process-wide counters.
func TestReadAllDoesNotTrustHeaderSizes(t *testing.T) {
	const huge = 0xFFFFFFF0

	var buf bytes.Buffer
	_, err := header.Write(&buf, &header.Header{Records: []header.Record{
		{Name: "a", Packing: PackingUncompressed, OriginalSize: huge, DataSize: huge},
	}})
	require.NoError(t, err)
	buf.WriteString("data")
	stored := buf.Bytes()

	packed := testutil.BuildArchive(t, nil, []testutil.TestEntry{
		{Name: "p.bin", Packing: PackingPacked, OriginalSize: huge, Data: testutil.CompressLiterals([]byte("data"))},
	})

	tests := []struct {
		name    string
		raw     []byte
		entry   string
		options []Option
	}{
		{"stored", stored, "a", nil},
		{"packed", packed, "p.bin", []Option{WithOffsetMode(OffsetDataSize)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Load(testutil.NewMockSource(tt.raw), tt.options...)
			require.NoError(t, err)
			e, ok := a.Entry(tt.entry)
			require.True(t, ok)
			require.Equal(t, int64(huge), e.Size())

			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err = e.ReadAll()
			runtime.ReadMemStats(&after)

			require.ErrorIs(t, err, io.ErrUnexpectedEOF)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
		})
	}
}

func TestEntryDigest(t *testing.T) {
	t.Parallel()

	a := loadTestArchive(t, nil, []testutil.TestEntry{{Name: "a.txt", Data: []byte("hello")}})
	e, _ := a.Entry("a.txt")
	d, err := e.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest.FromString("hello"), d)
}

func TestConcurrentEntryReads(t *testing.T) {
	t.Parallel()

	entries := make([]testutil.TestEntry, 16)
	for i := range entries {
		entries[i] = testutil.TestEntry{
			Name: string(rune('a'+i)) + ".bin",
			Data: bytes.Repeat([]byte{byte(i)}, 1000+i),
		}
	}
	a := loadTestArchive(t, nil, entries)

	var wg sync.WaitGroup
	for i, e := range a.Entries() {
		wg.Go(func() {
			data, err := e.ReadAll()
			assert.NoError(t, err)
			assert.Equal(t, entries[i].Data, data)
		})
	}
	wg.Wait()
}

func TestAddEntryValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   string
		wantErr error
	}{
		{"empty name", "", ErrInvalidOperation},
		{"nul in name", "a\x00b", ErrInvalidOperation},
		{"invalid utf-8", "a\xffb.txt", ErrInvalidOperation},
		{"truncated rune", "caf\xc3", ErrInvalidOperation},
		{"valid", `dir\file.txt`, nil},
		{"valid non-ascii", `données\café.txt`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			_, err := a.AddEntry(tt.entry, []byte("x"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, a.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, a.Len())
		})
	}
}

func TestAddEntryCopiesData(t *testing.T) {
	t.Parallel()

	a := New(WithClock(fixedClock))
	data := []byte("hello")
	e, err := a.AddEntry("a.txt", data)
	require.NoError(t, err)
	data[0] = 'j'

	got, err := e.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, fixedTime, e.ModTime())
	assert.Equal(t, PackingUncompressed, e.Packing())
}

func TestSaveToHelloWorld(t *testing.T) {
	t.Parallel()

	a := New()
	_, err := a.AddEntry("a.txt", []byte("hello"))
	require.NoError(t, err)
	_, err = a.AddEntry(`dir\b.txt`, []byte("world!"))
	require.NoError(t, err)

	var buf bytes.Buffer
	stats, err := a.SaveTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(11), stats.DataBytes)
	assert.Empty(t, stats.Degraded)

	raw := buf.Bytes()
	// Two records, the sentinel, then exactly the entry bytes.
	assert.Equal(t, int64(6+20+10+20+21), stats.HeaderBytes)
	assert.Equal(t, "helloworld!", string(raw[stats.HeaderBytes:]))

	b, err := Load(testutil.NewMockSource(raw))
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	for i, want := range []struct {
		name string
		data string
	}{{"a.txt", "hello"}, {`dir\b.txt`, "world!"}} {
		e := b.Entries()[i]
		assert.Equal(t, want.name, e.Name())
		assert.Equal(t, int64(len(want.data)), e.Size())
		assert.True(t, e.ModTime().IsZero(), "timestamps are not stored by default")
		assert.Equal(t, want.data, string(readEntry(t, b, want.name)))
	}
}

func TestSaveStoresTimestamps(t *testing.T) {
	t.Parallel()

	a := New(WithClock(fixedClock), WithStoreTimestamps(true))
	require.True(t, a.StoreTimestamps())
	require.NoError(t, a.AddProductPair("prefix", "addon"))
	_, err := a.AddEntryWithTime("a.txt", []byte("x"), time.Unix(1600000000, 0))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = a.SaveTo(&buf)
	require.NoError(t, err)

	b, err := Load(testutil.NewMockSource(buf.Bytes()))
	require.NoError(t, err)
	e, _ := b.Entry("a.txt")
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), e.ModTime())
	assert.Equal(t, []ProductPair{{Key: "prefix", Value: "addon"}}, b.ProductPairs())

	a.SetStoreTimestamps(false)
	buf.Reset()
	_, err = a.SaveTo(&buf)
	require.NoError(t, err)
	b, err = Load(testutil.NewMockSource(buf.Bytes()))
	require.NoError(t, err)
	e, _ = b.Entry("a.txt")
	assert.True(t, e.ModTime().IsZero())
}

func TestSaveConvertsPackedToUncompressed(t *testing.T) {
	t.Parallel()

	stream := testutil.NewLZSSBuilder().Literal([]byte("abcdefgh")...).Ref(4, 4).Raw(0, 0, 0, 0).Bytes()
	a := loadTestArchive(t, []string{"version", "1"}, []testutil.TestEntry{
		{Name: "p.bin", Packing: PackingPacked, OriginalSize: 12, Data: stream},
	})

	var buf bytes.Buffer
	_, err := a.SaveTo(&buf)
	require.NoError(t, err)

	// Save replaced the entry with an in-memory copy.
	e, _ := a.Entry("p.bin")
	assert.Equal(t, PackingUncompressed, e.Packing())

	b, err := Load(testutil.NewMockSource(buf.Bytes()))
	require.NoError(t, err)
	e, _ = b.Entry("p.bin")
	assert.Equal(t, PackingUncompressed, e.Packing())
	assert.Equal(t, int64(12), e.DataSize())
	assert.Equal(t, "abcdefghefgh", string(readEntry(t, b, "p.bin")))
	assert.Equal(t, []string{"version", "1"}, b.ProductEntries())
}

func TestSaveDegradesUnreadableEntry(t *testing.T) {
	t.Parallel()

	raw := testutil.BuildArchive(t, nil, []testutil.TestEntry{
		{Name: "a.txt", Data: []byte("hello")},
		{Name: "b.txt", Data: []byte("world!")},
		{Name: "c.txt", Data: []byte("!")},
	})
	dataOffset := int64(len(raw) - 12)
	src := &testutil.FailingSource{MockSource: testutil.NewMockSource(raw), FailAt: dataOffset + 5}
	// Reads of b and c start at or past FailAt.
	a, err := Load(src)
	require.NoError(t, err)

	var buf bytes.Buffer
	stats, err := a.SaveTo(&buf)
	require.NoError(t, err)
	require.Len(t, stats.Degraded, 2)
	assert.Equal(t, "b.txt", stats.Degraded[0].Name)
	assert.Equal(t, "c.txt", stats.Degraded[1].Name)
	require.ErrorIs(t, stats.Degraded[0].Err, testutil.ErrInjected)

	b, err := Load(testutil.NewMockSource(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 3, b.Len())
	assert.Equal(t, "hello", string(readEntry(t, b, "a.txt")))
	e, _ := b.Entry("b.txt")
	assert.Zero(t, e.Size())
	assert.Empty(t, readEntry(t, b, "b.txt"))
}

func TestSaveDegradesCorruptEntry(t *testing.T) {
	t.Parallel()

	stream := testutil.NewLZSSBuilder().Literal('a').Ref(9, 3).Bytes()
	a := loadTestArchive(t, nil, []testutil.TestEntry{
		{Name: "bad.bin", Packing: PackingPacked, OriginalSize: 4, Data: stream},
		{Name: "ok.txt", Data: []byte("fine")},
	}, WithOffsetMode(OffsetDataSize))

	var buf bytes.Buffer
	stats, err := a.SaveTo(&buf)
	require.NoError(t, err)
	require.Len(t, stats.Degraded, 1)
	require.ErrorIs(t, stats.Degraded[0].Err, ErrCorruptStream)

	b, err := Load(testutil.NewMockSource(buf.Bytes()))
	require.NoError(t, err)
	assert.Empty(t, readEntry(t, b, "bad.bin"))
	assert.Equal(t, "fine", string(readEntry(t, b, "ok.txt")))
}

func TestSaveReportsProgress(t *testing.T) {
	t.Parallel()

	var events []ProgressEvent
	a := New(WithProgress(func(ev ProgressEvent) { events = append(events, ev) }))
	_, err := a.AddEntry("a", []byte("12"))
	require.NoError(t, err)
	_, err = a.AddEntry("b", []byte("345"))
	require.NoError(t, err)

	_, err = a.SaveTo(io.Discard)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, StageSaving, events[1].Stage)
	assert.Equal(t, "b", events[1].Name)
	assert.Equal(t, uint64(5), events[1].BytesDone)
	assert.Equal(t, uint64(5), events[1].BytesTotal)
	assert.Equal(t, 2, events[1].EntriesDone)
}

func TestSaveWithoutPath(t *testing.T) {
	t.Parallel()

	_, err := New().Save()
	require.ErrorIs(t, err, ErrNoPath)
}

func TestOpenCreatesEmptyArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "new.pbo")
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Zero(t, a.Len())
	assert.Equal(t, path, a.Path())

	_, err = a.AddEntry("a.txt", []byte("hello"))
	require.NoError(t, err)
	_, err = a.Save()
	require.NoError(t, err)

	b, err := Open(path, WithReadOnly(true))
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "hello", string(readEntry(t, b, "a.txt")))
}

func TestSaveOverSourceFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "addon.pbo")
	stream := testutil.NewLZSSBuilder().Literal([]byte("abcdefgh")...).Ref(5, 3).Raw(0, 0, 0, 0).Bytes()
	raw := testutil.BuildArchive(t, []string{"prefix", "addon"}, []testutil.TestEntry{
		{Name: "p.bin", Packing: PackingPacked, OriginalSize: 11, Data: stream},
	})
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	a, err := Open(path)
	require.NoError(t, err)
	_, err = a.AddEntry("added.txt", []byte("new"))
	require.NoError(t, err)
	stats, err := a.Save()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	require.NoError(t, a.Close())

	b, err := Open(path, WithReadOnly(true))
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "abcdefghdef", string(readEntry(t, b, "p.bin")))
	assert.Equal(t, "new", string(readEntry(t, b, "added.txt")))
	value, ok := b.FindProductEntry("PREFIX")
	assert.True(t, ok)
	assert.Equal(t, "addon", value)
}

func TestSaveAsBindsPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := New()
	_, err := a.AddEntry("a.txt", []byte("x"))
	require.NoError(t, err)

	target := filepath.Join(dir, "sub", "out.pbo")
	_, err = a.SaveAs(target)
	require.NoError(t, err)
	assert.Equal(t, target, a.Path())

	_, err = a.Save()
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "sub", ".pbo-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files must not be left behind")
}

func TestOpenReadOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.pbo"), WithReadOnly(true))
	require.ErrorIs(t, err, ErrInvalidOperation)

	empty := filepath.Join(dir, "empty.pbo")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Open(empty, WithReadOnly(true))
	require.ErrorIs(t, err, ErrInvalidOperation)

	existing := filepath.Join(dir, "a.pbo")
	require.NoError(t, os.WriteFile(existing, make([]byte, 21), 0o644))
	a, err := Open(existing, WithReadOnly(true))
	require.NoError(t, err)
	defer a.Close()
	_, err = a.Save()
	require.ErrorIs(t, err, ErrInvalidOperation)
}

func TestCloseDetachesEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.pbo")
	raw := testutil.BuildArchive(t, nil, []testutil.TestEntry{{Name: "a.txt", Data: []byte("hello")}})
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	a, err := Open(path)
	require.NoError(t, err)
	_, err = a.AddEntry("mem.txt", []byte("kept"))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	e, _ := a.Entry("a.txt")
	_, err = e.ReadAll()
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, "kept", string(readEntry(t, a, "mem.txt")))

	// Saving degrades the detached entry instead of failing.
	stats, err := a.SaveTo(io.Discard)
	require.NoError(t, err)
	require.Len(t, stats.Degraded, 1)
	assert.Equal(t, "a.txt", stats.Degraded[0].Name)
}
