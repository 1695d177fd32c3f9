// Package manifest defines the persisted reconstruction recipe for an
// archive run and its YAML wire format.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Scarjit/fileChunk/archiveerr"
)

// FileName is the manifest's well-known filename within a data directory.
const FileName = "restore_info.yaml"

// Range is a chunk-id-qualified half-open byte range [Start, End) within
// that chunk's decompressed payload.
type Range struct {
	ChunkID uint64 `yaml:"chunk_id"`
	Start   uint64 `yaml:"start"`
	End     uint64 `yaml:"end"`
}

// wireFile is the YAML representation of one file's ordered range list.
// The order of a file's chunk ranges is significant: it defines the
// byte-reassembly order. Go maps have no stable iteration order, so files
// are serialized as an ordered sequence rather than a map.
type wireFile struct {
	Path   string  `yaml:"path"`
	Ranges []Range `yaml:"ranges"`
}

type wireManifest struct {
	Files      []wireFile          `yaml:"files"`
	Hashes     map[string]string   `yaml:"hashes"`
	Duplicates map[string][]string `yaml:"duplicates"`
}

// Manifest is the in-memory reconstruction recipe: per-file ordered
// segment lists, whole-file hashes, and duplicate groups.
type Manifest struct {
	// Files maps a source path to its ordered list of chunk ranges. The
	// order of this slice defines the byte-reassembly order.
	Files map[string][]Range
	// Hashes maps a source path to its whole-file BLAKE3 hex digest.
	Hashes map[string]string
	// Duplicates maps a whole-file hash to every source path sharing it,
	// for hashes with two or more paths.
	Duplicates map[string][]string
}

// New returns an empty Manifest ready for population by the chunker.
func New() *Manifest {
	return &Manifest{
		Files:      make(map[string][]Range),
		Hashes:     make(map[string]string),
		Duplicates: make(map[string][]string),
	}
}

// Save writes the manifest as YAML to <dataDir>/restore_info.yaml.
func (m *Manifest) Save(dataDir string) error {
	w := wireManifest{
		Hashes:     m.Hashes,
		Duplicates: m.Duplicates,
	}
	// deterministic file order keeps archive runs byte-for-byte
	// reproducible, independent of Go's map iteration.
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		w.Files = append(w.Files, wireFile{Path: p, Ranges: m.Files[p]})
	}

	path := filepath.Join(dataDir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating manifest %q: %v", archiveerr.IoFailed, path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()
	if err := enc.Encode(&w); err != nil {
		return fmt.Errorf("%w: encoding manifest: %v", archiveerr.IoFailed, err)
	}
	return nil
}

// Load reads and parses <dataDir>/restore_info.yaml.
func Load(dataDir string) (*Manifest, error) {
	path := filepath.Join(dataDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest %q: %v", archiveerr.IoFailed, path, err)
	}
	var w wireManifest
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest %q: %v", archiveerr.ManifestMalformed, path, err)
	}
	var top map[string]interface{}
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest %q: %v", archiveerr.ManifestMalformed, path, err)
	}
	for _, field := range []string{"files", "hashes", "duplicates"} {
		if _, ok := top[field]; !ok {
			return nil, fmt.Errorf("%w: manifest %q has no %q field", archiveerr.ManifestMalformed, path, field)
		}
	}
	m := New()
	for _, wf := range w.Files {
		m.Files[wf.Path] = wf.Ranges
	}
	if w.Hashes != nil {
		m.Hashes = w.Hashes
	}
	if w.Duplicates != nil {
		m.Duplicates = w.Duplicates
	}
	return m, nil
}
