// Package phash computes frame fingerprints from square grayscale frames.
//
// Algorithms are registered by name (md5, average, difference, perceptual,
// block_mean_0, block_mean_1) and share one signature so the hashing pipeline
// can compute any configured subset per frame. Perceptual algorithms produce
// bit vectors where hamming distance tracks visual difference; md5 is an
// exact content hash.
package phash
