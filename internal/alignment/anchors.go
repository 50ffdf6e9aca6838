package alignment

import (
	"cmp"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// ExtractAnchors pairs frames whose fingerprint occurs exactly once in each
// edition, ordered by the first edition's frame index. Pairs that break
// temporal order are dropped together with the pair they invert against, so
// the result is strictly increasing in both editions.
func ExtractAnchors(a, b []Record) []Anchor {
	uniqueA := uniqueByFingerprint(a)
	uniqueB := uniqueByFingerprint(b)
	if len(uniqueA) == 0 || len(uniqueB) == 0 {
		return nil
	}

	pairs := make([]Anchor, 0, min(len(uniqueA), len(uniqueB)))
	for key, recordA := range uniqueA {
		if recordB, ok := uniqueB[key]; ok {
			pairs = append(pairs, Anchor{A: recordA, B: recordB})
		}
	}
	slices.SortFunc(pairs, func(x, y Anchor) int {
		return cmp.Compare(x.A.Index, y.A.Index)
	})

	for {
		inverted := findInversions(pairs)
		if inverted.IsEmpty() {
			return pairs
		}
		pairs = slices.DeleteFunc(pairs, func(anchor Anchor) bool {
			return inverted.Contains(uint32(anchor.B.Index))
		})
	}
}

// uniqueByFingerprint returns the records whose fingerprint appears once.
func uniqueByFingerprint(records []Record) map[string]Record {
	counts := make(map[string]int, len(records))
	for _, record := range records {
		if len(record.Fingerprint) == 0 {
			continue
		}
		counts[record.Fingerprint.Key()]++
	}
	unique := make(map[string]Record, len(counts))
	for _, record := range records {
		if len(record.Fingerprint) == 0 {
			continue
		}
		key := record.Fingerprint.Key()
		if counts[key] == 1 {
			unique[key] = record
		}
	}
	return unique
}

// findInversions scans pairs ordered by A and returns the B indices of every
// pair whose B index is below its predecessor's, together with that
// predecessor's.
func findInversions(pairs []Anchor) *roaring.Bitmap {
	inverted := roaring.New()
	for i := 1; i < len(pairs); i++ {
		prev, curr := pairs[i-1].B.Index, pairs[i].B.Index
		if curr < prev {
			inverted.Add(uint32(curr))
			inverted.Add(uint32(prev))
		}
	}
	return inverted
}
