package testsupport

import (
	"crypto/sha256"
	"fmt"

	"cutdiff/internal/hamming"
)

// Fingerprint returns a 256-bit fingerprint derived from seed. Different
// seeds are far apart in hamming distance.
func Fingerprint(seed string) hamming.Fingerprint {
	sum := sha256.Sum256([]byte(seed))
	return hamming.Fingerprint(sum[:])
}

// Sequence returns fingerprints for seeds prefix+from .. prefix+(to-1).
func Sequence(prefix string, from, to int) []hamming.Fingerprint {
	out := make([]hamming.Fingerprint, 0, max(to-from, 0))
	for i := from; i < to; i++ {
		out = append(out, Fingerprint(fmt.Sprintf("%s%d", prefix, i)))
	}
	return out
}
