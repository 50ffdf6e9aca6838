// Package framestore persists per-frame fingerprints in SQLite.
//
// Each edition gets its own frames_<edition> table keyed by frame_index with
// one hex column per hashing algorithm. The editions table records where each
// edition came from, its frame rate, and which algorithms were computed; the
// chapters table holds imported chapter markers. Reads used by the alignment
// engine always go through one designated algorithm column.
//
// Schema changes bump schemaVersion in schema.go; existing databases with an
// older version are rejected rather than migrated.
package framestore
