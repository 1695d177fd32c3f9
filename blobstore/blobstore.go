// Package blobstore implements the content-addressed byte-blob sink/source:
// one <chunk_id>.chunk file per unique chunk, framed Snappy compressed,
// read back through a bounded decompressed-blob cache.
package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Scarjit/fileChunk/archiveerr"
)

// defaultCacheSize bounds how many decompressed chunk payloads are kept in
// memory across Get calls, replacing the teacher's hand-rolled FIFO cache
// (Repo.chunkCache) with a real LRU of the same role.
const defaultCacheSize = 256

// Store is a directory of content-addressed, compressed chunk blobs.
type Store struct {
	dir   string
	cache *lru.Cache[uint64, []byte]
}

// Open returns a Store rooted at dir. dir must already exist.
func Open(dir string) (*Store, error) {
	c, err := lru.New[uint64, []byte](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: allocating blob cache: %v", archiveerr.IoFailed, err)
	}
	return &Store{dir: dir, cache: c}, nil
}

func (s *Store) path(chunkID uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(chunkID, 10)+".chunk")
}

// Put writes data under chunkID, framed-Snappy-compressed. If a blob of
// that name already exists, Put is a no-op unless its decompressed
// content differs from data, in which case it is a fingerprint collision
// and Put fails loudly rather than silently trusting the name.
func (s *Store) Put(chunkID uint64, data []byte) error {
	p := s.path(chunkID)
	if _, err := os.Stat(p); err == nil {
		existing, err := s.readFile(p)
		if err != nil {
			return err
		}
		if !bytes.Equal(existing, data) {
			return fmt.Errorf("%w: chunk id %d collision: existing blob content differs from new write", archiveerr.IoFailed, chunkID)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: checking existing blob %q: %v", archiveerr.IoFailed, p, err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("%w: creating blob %q: %v", archiveerr.IoFailed, p, err)
	}
	w := snappy.NewBufferedWriter(f)
	if _, err := w.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing blob %q: %v", archiveerr.CompressionFailed, p, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("%w: closing compressor for %q: %v", archiveerr.CompressionFailed, p, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing blob %q: %v", archiveerr.IoFailed, p, err)
	}
	s.cache.Add(chunkID, data)
	return nil
}

// Get reads and decompresses the blob named by chunkID, consulting the
// cache first.
func (s *Store) Get(chunkID uint64) ([]byte, error) {
	if v, ok := s.cache.Get(chunkID); ok {
		return v, nil
	}
	data, err := s.readFile(s.path(chunkID))
	if err != nil {
		return nil, err
	}
	s.cache.Add(chunkID, data)
	return data, nil
}

// readFile opens and fully decompresses a single blob file. A failure to
// open the file is wrapped as archiveerr.IoFailed (the underlying os error
// is kept only as message text, not as a wrapped error); a failure of the Snappy reader
// itself is wrapped as archiveerr.CompressionFailed, so the two causes
// stay distinguishable with errors.Is.
func (s *Store) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening blob %q: %v", archiveerr.IoFailed, path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(snappy.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing blob %q: %v", archiveerr.CompressionFailed, path, err)
	}
	return data, nil
}
