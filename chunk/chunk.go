// Package chunk implements the in-flight chunk buffer: it accumulates
// bytes fed to it by the chunker, tracks which byte ranges of which
// source files it contains, and seals into an immutable, content-addressed
// blob.
package chunk

import (
	"bytes"

	"github.com/Scarjit/fileChunk/fingerprint"
)

// Segment names a contiguous byte range of one source file within one
// chunk's payload.
type Segment struct {
	Path  string
	Start uint64
	End   uint64
}

// Chunk accumulates bytes for a single output blob.
type Chunk struct {
	buffer   bytes.Buffer
	offset   uint64
	segments []Segment
	fp       *fingerprint.Fingerprint
	sealed   bool
}

// New returns an empty Chunk with a fresh fingerprint.
func New() *Chunk {
	return &Chunk{fp: fingerprint.New()}
}

// IsEmpty reports whether no bytes have been appended yet.
func (c *Chunk) IsEmpty() bool {
	return c.buffer.Len() == 0
}

// Len returns the number of bytes buffered so far.
func (c *Chunk) Len() uint64 {
	return c.offset
}

// Segments returns the segments recorded so far, in order.
func (c *Chunk) Segments() []Segment {
	return c.segments
}

// Append consumes data left-to-right for the given source path, pushing
// every byte through the fingerprint. As soon as the fingerprint hits the
// boundary condition (value mod modulus == 0), it records a closing
// segment for the bytes consumed so far and returns the unconsumed tail of
// data. If no boundary fires, it records the segment for the whole run and
// returns an empty remainder. A zero-length input still records an
// empty-range segment.
func (c *Chunk) Append(path string, data []byte, modulus uint64) (remainder []byte) {
	if c.sealed {
		panic("chunk: Append called after Seal")
	}
	start := c.offset
	var count uint64
	for i, b := range data {
		c.buffer.WriteByte(b)
		c.fp.Push(b)
		count++
		c.offset++
		if c.fp.Value()%modulus == 0 {
			c.segments = append(c.segments, Segment{Path: path, Start: start, End: start + count})
			return data[i+1:]
		}
	}
	c.segments = append(c.segments, Segment{Path: path, Start: start, End: start + count})
	return nil
}

// Seal freezes the chunk and returns its content address: the fingerprint
// value at the moment of sealing. No further Append is permitted.
func (c *Chunk) Seal() uint64 {
	c.sealed = true
	return c.fp.Value()
}

// Bytes returns the raw, uncompressed payload accumulated so far. Valid to
// call both before and after Seal.
func (c *Chunk) Bytes() []byte {
	return c.buffer.Bytes()
}
