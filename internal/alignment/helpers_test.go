package alignment

import (
	"context"
	"crypto/sha256"
	"fmt"

	"cutdiff/internal/hamming"
)

// memoryStore serves editions from memory and counts range reads.
type memoryStore struct {
	editions   map[string][]Record
	rangeCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{editions: map[string][]Record{}}
}

func (m *memoryStore) put(edition string, fingerprints []hamming.Fingerprint) {
	records := make([]Record, len(fingerprints))
	for i, fp := range fingerprints {
		records[i] = Record{Index: i, Fingerprint: fp}
	}
	m.editions[edition] = records
}

func (m *memoryStore) Range(_ context.Context, edition string, lower, upper int) ([]Record, error) {
	m.rangeCalls++
	records, ok := m.editions[edition]
	if !ok {
		return nil, fmt.Errorf("unknown edition %q", edition)
	}
	var out []Record
	for _, record := range records {
		if record.Index >= lower && record.Index < upper {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *memoryStore) UniqueSharedAnchors(_ context.Context, editionA, editionB string) ([]Anchor, error) {
	a, b := m.editions[editionA], m.editions[editionB]
	if err := ValidateSequence(editionA, a, 24); err != nil {
		return nil, err
	}
	if err := ValidateSequence(editionB, b, 24); err != nil {
		return nil, err
	}
	return ExtractAnchors(a, b), nil
}

func (m *memoryStore) record(edition string, index int) Record {
	return m.editions[edition][index]
}

func (m *memoryStore) anchor(a, b int) Anchor {
	return Anchor{A: m.record("a", a), B: m.record("b", b)}
}

// frame returns a 256-bit fingerprint that is far from every other seed.
func frame(seed string) hamming.Fingerprint {
	sum := sha256.Sum256([]byte(seed))
	return hamming.Fingerprint(sum[:])
}

// near returns fp with the lowest n bits flipped.
func near(fp hamming.Fingerprint, n int) hamming.Fingerprint {
	out := append(hamming.Fingerprint(nil), fp...)
	for i := range n {
		out[i/8] ^= 1 << (i % 8)
	}
	return out
}

func content(prefix string, from, to int) []hamming.Fingerprint {
	out := make([]hamming.Fingerprint, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, frame(fmt.Sprintf("%s%d", prefix, i)))
	}
	return out
}

func concat(parts ...[]hamming.Fingerprint) []hamming.Fingerprint {
	var out []hamming.Fingerprint
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// insertionStore holds 200 content frames in "a" and the same frames in "b"
// with inserted spliced in before content frame 110.
func insertionStore(inserted []hamming.Fingerprint) *memoryStore {
	store := newMemoryStore()
	store.put("a", content("c", 0, 200))
	store.put("b", concat(content("c", 0, 110), inserted, content("c", 110, 200)))
	return store
}

func policy24() Policy {
	p := DefaultPolicy()
	p.FrameRate = 24
	return p
}
