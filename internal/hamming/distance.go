package hamming

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
)

// Fingerprint is the fixed-length byte summary of a single frame produced by
// one hashing algorithm.
type Fingerprint []byte

// ParseHex decodes a hex-encoded fingerprint as persisted by the store.
func ParseHex(value string) (Fingerprint, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed)%2 != 0 {
		return nil, fmt.Errorf("parse fingerprint: odd hex length %d", len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse fingerprint: %w", err)
	}
	return Fingerprint(decoded), nil
}

// MustParseHex is ParseHex for literals known to be valid.
func MustParseHex(value string) Fingerprint {
	fp, err := ParseHex(value)
	if err != nil {
		panic(err)
	}
	return fp
}

// String returns the lowercase hex form used for persistence.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f)
}

// Key returns a comparable map key for grouping identical fingerprints.
func (f Fingerprint) Key() string {
	return string(f)
}

// Bits reports the number of bits carried by the fingerprint.
func (f Fingerprint) Bits() int {
	return len(f) * 8
}

// Distance returns the number of differing bits between a and b.
// Only the common prefix is compared when the lengths differ.
func Distance(a, b Fingerprint) int {
	n := min(len(a), len(b))

	dist := 0
	i := 0
	for ; i+8 <= n; i += 8 {
		dist += bits.OnesCount64(binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:]))
	}
	for ; i < n; i++ {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist
}

// Distances zips a and b and returns the pairwise distances up to the length
// of the shorter slice.
func Distances(a, b []Fingerprint) []int {
	n := min(len(a), len(b))
	out := make([]int, n)
	for i := range n {
		out[i] = Distance(a[i], b[i])
	}
	return out
}

// MaxDistance returns the largest distance between ref and any of the
// candidates, or 0 when there are none.
func MaxDistance(ref Fingerprint, candidates []Fingerprint) int {
	highest := 0
	for _, candidate := range candidates {
		if d := Distance(ref, candidate); d > highest {
			highest = d
		}
	}
	return highest
}

// LeadingWithin counts the leading distances that are at most threshold,
// stopping at the first one above it.
func LeadingWithin(distances []int, threshold int) int {
	for i, d := range distances {
		if d > threshold {
			return i
		}
	}
	return len(distances)
}
