// Package hamming compares fixed-length frame fingerprints by counting the
// bits that differ between them.
//
// Fingerprints travel through the store as lowercase hex text; ParseHex and
// Fingerprint.String convert between the persisted and in-memory forms.
// Distance is a total function: it never fails and treats fingerprints of
// unequal length by comparing their common prefix.
package hamming
