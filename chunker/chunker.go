// Package chunker drives the fingerprint and chunk packages across an
// ordered file list, maintains the dedup indices, and emits a manifest.
package chunker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/Scarjit/fileChunk/archiveerr"
	"github.com/Scarjit/fileChunk/blobstore"
	"github.com/Scarjit/fileChunk/chunk"
	"github.com/Scarjit/fileChunk/manifest"
)

// DefaultChunkModulus is the build-time boundary modulus M, chosen so
// expected chunk size is about 10 MiB under a uniform fingerprint
// distribution.
const DefaultChunkModulus uint64 = 10 * (1 << 20)

// Options overrides the build-time chunking constants per Chunker
// instance. New fills in DefaultChunkModulus when ChunkModulus is zero, so
// the zero value selects the build-time default.
type Options struct {
	// ChunkModulus is M: a chunk boundary fires whenever the running
	// fingerprint value is congruent to 0 modulo ChunkModulus.
	ChunkModulus uint64
}

// Chunker drives content-defined chunking across an ordered list of files,
// owns the dedup indices, and produces a Manifest.
type Chunker struct {
	opts  Options
	blobs *blobstore.Store

	hashToPaths  map[string][]string
	pathToHash   map[string]string
	fileSegments map[string][]chunk.Segment // path -> segments, chunk id stamped in at seal time
	segChunkID   map[string][]uint64         // path -> chunk id per segment, parallel to fileSegments
}

// New returns a Chunker that writes sealed chunks to blobs.
func New(blobs *blobstore.Store, opts Options) *Chunker {
	if opts.ChunkModulus == 0 {
		opts.ChunkModulus = DefaultChunkModulus
	}
	return &Chunker{
		opts:         opts,
		blobs:        blobs,
		hashToPaths:  make(map[string][]string),
		pathToHash:   make(map[string]string),
		fileSegments: make(map[string][]chunk.Segment),
		segChunkID:   make(map[string][]uint64),
	}
}

// AddFiles sorts paths lexicographically, then streams each non-duplicate
// file's bytes through the active chunk, sealing and storing blobs as
// boundaries fire. It is the only entry point that mutates the Chunker's
// dedup indices; nothing else is allowed to touch them concurrently.
//
// root is stripped from each entry of paths (after '/'-normalizing both)
// to produce the portable manifest path that segments and hashes are
// keyed by; paths themselves are the real filesystem locations to read
// from, exactly as WalkFiles returns them.
func (ck *Chunker) AddFiles(root string, paths []string) error {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	active := chunk.New()
	for _, raw := range sorted {
		path := TrimPrefix(filepath.ToSlash(raw), root)
		data, err := os.ReadFile(raw)
		if err != nil {
			return fmt.Errorf("%w: reading %q: %v", archiveerr.IoFailed, raw, err)
		}

		sum := blake3.Sum256(data)
		hash := fmt.Sprintf("%x", sum)
		ck.pathToHash[path] = hash
		ck.hashToPaths[hash] = append(ck.hashToPaths[hash], path)

		if len(ck.hashToPaths[hash]) > 1 {
			// duplicate of an already-streamed file: the earlier entry
			// already covers this content, nothing more to do.
			continue
		}

		remainder := data
		for {
			next := active.Append(path, remainder, ck.opts.ChunkModulus)
			if next == nil {
				// no boundary fired for this append: the whole remainder
				// landed in active, which stays open for the next file.
				break
			}
			if err := ck.sealAndRoll(active); err != nil {
				return err
			}
			active = chunk.New()
			remainder = next
			if len(remainder) == 0 {
				// boundary fired on the final byte of this file; nothing
				// left to feed forward, so the next file starts the new
				// chunk fresh instead of getting a spurious empty segment.
				break
			}
		}
	}
	if !active.IsEmpty() {
		if err := ck.sealAndRoll(active); err != nil {
			return err
		}
	}
	return nil
}

// sealAndRoll seals c, stamps its sealed chunk id onto every segment it
// buffered, persists the blob, and records the stamped segments into
// file_segments. Segments are recorded without any chunk-id field to
// begin with (chunk.Segment carries only path/start/end) specifically so
// this stamp-at-seal step is correct by construction: there is no earlier,
// wrong id to repair, only one place segments are ever attributed a chunk
// id, and it is always the final sealed one.
func (ck *Chunker) sealAndRoll(c *chunk.Chunk) error {
	id := c.Seal()
	for _, seg := range c.Segments() {
		ck.fileSegments[seg.Path] = append(ck.fileSegments[seg.Path], seg)
		ck.segChunkID[seg.Path] = append(ck.segChunkID[seg.Path], id)
	}
	if err := ck.blobs.Put(id, c.Bytes()); err != nil {
		return err
	}
	return nil
}

// Manifest builds the persisted manifest from the current dedup indices.
func (ck *Chunker) Manifest() *manifest.Manifest {
	m := manifest.New()
	for path, segs := range ck.fileSegments {
		ids := ck.segChunkID[path]
		ranges := make([]manifest.Range, len(segs))
		for i, seg := range segs {
			ranges[i] = manifest.Range{ChunkID: ids[i], Start: seg.Start, End: seg.End}
		}
		m.Files[path] = ranges
	}
	for path, hash := range ck.pathToHash {
		m.Hashes[path] = hash
	}
	for hash, paths := range ck.hashToPaths {
		if len(paths) >= 2 {
			dup := make([]string, len(paths))
			copy(dup, paths)
			m.Duplicates[hash] = dup
		}
	}
	return m
}

// ConcatFiles copies the contents of every file in paths, in order, into
// w. It is the direct analogue of the teacher's concatFiles helper;
// nothing in this repository calls it.
func ConcatFiles(paths []string, w io.Writer) error {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("%w: opening %q: %v", archiveerr.IoFailed, p, err)
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%w: copying %q: %v", archiveerr.IoFailed, p, err)
		}
	}
	return nil
}

// WalkFiles lists every regular file under root, in the order the
// filesystem yields them (AddFiles sorts afterward, so any walk order is
// fine here).
func WalkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %q: %v", archiveerr.IoFailed, root, err)
	}
	return files, nil
}

// TrimPrefix removes a literal directory prefix, matching the teacher's
// unprefixFiles helper but operating on '/'-normalized paths.
func TrimPrefix(path, prefix string) string {
	prefix = filepath.ToSlash(prefix)
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	return strings.TrimPrefix(path[len(prefix):], "/")
}
