// Package hashing turns a video file into a hashed edition in the frame store.
//
// A run probes the source with ffprobe, registers the edition, decodes every
// frame through ffmpeg as a small grayscale buffer, fingerprints batches of
// frames on a bounded worker pool, and writes each batch in one transaction
// while holding the store's writer lock. Embedded container chapters are
// imported alongside the frames. A failed run removes the partial edition so
// the store never holds an edition with missing frames.
package hashing
