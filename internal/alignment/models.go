package alignment

import (
	"time"

	"cutdiff/internal/hamming"
)

// Record is one frame's fingerprint within an edition.
type Record struct {
	Index       int
	Fingerprint hamming.Fingerprint
}

// Anchor asserts that frame A in the first edition and frame B in the second
// depict the same moment.
type Anchor struct {
	A Record
	B Record
}

// Kind classifies one side of a Difference.
type Kind string

const (
	// KindNew marks a span whose counterpart in the other edition is empty.
	KindNew Kind = "new"
	// KindDifferent marks a span replaced by non-empty footage in the other edition.
	KindDifferent Kind = "different"
)

// Range is the span of one edition implicated in a divergence.
type Range struct {
	Start      time.Duration
	End        time.Duration
	Duration   time.Duration
	Kind       Kind
	StartFrame int
	EndFrame   int
}

// Difference is a confirmed divergence between the two editions.
type Difference struct {
	A             Range
	B             Range
	DurationDelta time.Duration
}

// MaxDuration returns the longer of the two ranges, the key differences are
// ordered by.
func (d Difference) MaxDuration() time.Duration {
	return max(d.A.Duration, d.B.Duration)
}
