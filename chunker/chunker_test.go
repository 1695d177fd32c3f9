package chunker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Scarjit/fileChunk/blobstore"
	"github.com/Scarjit/fileChunk/manifest"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestChunker(t *testing.T, modulus uint64) (*Chunker, string) {
	t.Helper()
	dataDir := t.TempDir()
	blobs, err := blobstore.Open(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	return New(blobs, Options{ChunkModulus: modulus}), dataDir
}

// An archive run with no paths produces a fully empty manifest.
func TestEmptyInputSet(t *testing.T) {
	ck, dataDir := newTestChunker(t, 64)
	if err := ck.AddFiles(dataDir, nil); err != nil {
		t.Fatal(err)
	}
	m := ck.Manifest()
	if len(m.Files) != 0 || len(m.Hashes) != 0 || len(m.Duplicates) != 0 {
		t.Fatalf("expected a fully empty manifest, got %+v", m)
	}
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".chunk" {
			t.Fatalf("unexpected chunk file %q for an empty archive", e.Name())
		}
	}
}

// A single file smaller than the modulus's expected chunk size ends up
// as exactly one range covering the whole file.
func TestSingleSmallFile(t *testing.T) {
	src := t.TempDir()
	writeFile(t, src, "hello.txt", []byte("hello"))
	ck, dataDir := newTestChunker(t, 1<<40) // modulus large enough no boundary fires within "hello"

	if err := ck.AddFiles(src, []string{filepath.Join(src, "hello.txt")}); err != nil {
		t.Fatal(err)
	}
	m := ck.Manifest()
	ranges, ok := m.Files["hello.txt"]
	if !ok {
		t.Fatalf("manifest missing hello.txt: %+v", m.Files)
	}
	if len(ranges) != 1 || ranges[0].Start != 0 || ranges[0].End != 5 {
		t.Fatalf("ranges = %+v, want exactly one [0,5) entry", ranges)
	}

	blobs, err := blobstore.Open(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	data, err := blobs.Get(ranges[0].ChunkID)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("chunk payload = %q, want %q", data, "hello")
	}
}

// Two files with identical content dedup to one files entry and both
// paths appear under duplicates.
func TestDedupOfWholeFiles(t *testing.T) {
	src := t.TempDir()
	content := make([]byte, 4096)
	for i := range content {
		content[i] = 0xAB
	}
	writeFile(t, src, "a.bin", content)
	writeFile(t, src, "b.bin", content)
	ck, _ := newTestChunker(t, 1<<40)

	if err := ck.AddFiles(src, []string{
		filepath.Join(src, "a.bin"),
		filepath.Join(src, "b.bin"),
	}); err != nil {
		t.Fatal(err)
	}
	m := ck.Manifest()

	_, aHas := m.Files["a.bin"]
	_, bHas := m.Files["b.bin"]
	if aHas == bHas {
		t.Fatalf("expected exactly one of a.bin/b.bin in files, got a=%v b=%v", aHas, bHas)
	}
	if m.Hashes["a.bin"] != m.Hashes["b.bin"] {
		t.Fatalf("a.bin and b.bin should share a hash")
	}
	dups := m.Duplicates[m.Hashes["a.bin"]]
	if len(dups) != 2 {
		t.Fatalf("duplicates = %v, want both paths", dups)
	}
}

// Segment coverage for a file present in files must sum to its full length.
func TestSegmentCoverage(t *testing.T) {
	src := t.TempDir()
	content := make([]byte, 10000)
	for i := range content {
		content[i] = byte(i * 7)
	}
	writeFile(t, src, "f.bin", content)
	ck, _ := newTestChunker(t, 97) // small modulus, forces several boundaries

	if err := ck.AddFiles(src, []string{filepath.Join(src, "f.bin")}); err != nil {
		t.Fatal(err)
	}
	m := ck.Manifest()
	ranges := m.Files["f.bin"]
	if len(ranges) == 0 {
		t.Fatal("expected at least one range")
	}
	var total uint64
	for _, r := range ranges {
		total += r.End - r.Start
	}
	if total != uint64(len(content)) {
		t.Fatalf("sum of range lengths = %d, want %d", total, len(content))
	}
}

// Two files concatenated trigger a mid-stream boundary; at least one
// chunk is referenced by both files' entries.
func TestCrossFileChunk(t *testing.T) {
	src := t.TempDir()
	modulus := uint64(64)
	x := make([]byte, 32) // half the "expected" small modulus size
	for i := range x {
		x[i] = byte(i)
	}
	y := make([]byte, 64)
	for i := range y {
		y[i] = byte(255 - i)
	}
	writeFile(t, src, "x.bin", x)
	writeFile(t, src, "y.bin", y)
	ck, _ := newTestChunker(t, modulus)

	if err := ck.AddFiles(src, []string{
		filepath.Join(src, "x.bin"),
		filepath.Join(src, "y.bin"),
	}); err != nil {
		t.Fatal(err)
	}
	m := ck.Manifest()
	xIDs := idSet(m.Files["x.bin"])
	yIDs := idSet(m.Files["y.bin"])
	shared := false
	for id := range xIDs {
		if yIDs[id] {
			shared = true
			break
		}
	}
	if !shared {
		t.Fatalf("expected x.bin and y.bin to share at least one chunk id, x=%v y=%v", xIDs, yIDs)
	}
}

func idSet(ranges []manifest.Range) map[uint64]bool {
	s := make(map[uint64]bool)
	for _, r := range ranges {
		s[r.ChunkID] = true
	}
	return s
}

// Running AddFiles twice over the same sorted input with the same
// modulus produces byte-for-byte identical chunk ids and blob files.
func TestBoundaryDeterminism(t *testing.T) {
	src := t.TempDir()
	content := make([]byte, 50000)
	for i := range content {
		content[i] = byte(i*31 + 7)
	}
	writeFile(t, src, "det.bin", content)

	run := func() map[string]bool {
		ck, dataDir := newTestChunker(t, 251)
		if err := ck.AddFiles(src, []string{filepath.Join(src, "det.bin")}); err != nil {
			t.Fatal(err)
		}
		entries, err := os.ReadDir(dataDir)
		if err != nil {
			t.Fatal(err)
		}
		names := make(map[string]bool)
		for _, e := range entries {
			names[e.Name()] = true
		}
		return names
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("chunk file counts differ: %d vs %d", len(first), len(second))
	}
	for name := range first {
		if !second[name] {
			t.Fatalf("chunk file %q present in first run but not second", name)
		}
	}
}
