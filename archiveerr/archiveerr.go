// Package archiveerr defines the error kinds surfaced by the archiver and
// restorer. There is no local recovery: every operation either succeeds or
// returns one of these, wrapped with context via fmt.Errorf("%w").
package archiveerr

import "errors"

// IoFailed wraps any filesystem error encountered while reading or writing
// source files, blobs or the manifest.
var IoFailed = errors.New("io failed")

// ManifestMalformed means the manifest YAML could not be parsed or is
// missing a required field.
var ManifestMalformed = errors.New("manifest malformed")

// UnknownPath means a restore was requested for a path that is neither a
// key of files nor resolvable through hashes+duplicates.
var UnknownPath = errors.New("unknown path")

// CompressionFailed means the framed compressor reported a stream error.
var CompressionFailed = errors.New("compression failed")
