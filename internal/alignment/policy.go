package alignment

import (
	"math"
	"time"

	"cutdiff/internal/config"
)

// Policy carries the thresholds used by the extractor, refiner, and comparer.
type Policy struct {
	// FrameRate converts frame indices to timestamps.
	FrameRate float64
	// PerceptualMatchThreshold is the largest hamming distance at which two
	// frames are the same frame.
	PerceptualMatchThreshold int
	// ExtendedSimilarityThreshold bounds the one-sided insertions, in frames,
	// that are checked for padding.
	ExtendedSimilarityThreshold int
	// MaximumInterMatchSearch caps how many frames are compared from each end
	// of a gap per narrowing step.
	MaximumInterMatchSearch int
}

// DefaultPolicy returns the thresholds tuned for 24p film sources.
func DefaultPolicy() Policy {
	return Policy{
		FrameRate:                   23.976216,
		PerceptualMatchThreshold:    5,
		ExtendedSimilarityThreshold: 12,
		MaximumInterMatchSearch:     24,
	}
}

// PolicyFromConfig builds a policy from the [alignment] section.
func PolicyFromConfig(cfg config.Alignment) Policy {
	return Policy{
		FrameRate:                   cfg.FrameRate,
		PerceptualMatchThreshold:    cfg.PerceptualMatchThreshold,
		ExtendedSimilarityThreshold: cfg.ExtendedSimilarityThreshold,
		MaximumInterMatchSearch:     cfg.MaximumInterMatchSearch,
	}.normalized()
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()

	if p.FrameRate <= 0 || math.IsNaN(p.FrameRate) || math.IsInf(p.FrameRate, 0) {
		p.FrameRate = d.FrameRate
	}
	if p.PerceptualMatchThreshold < 0 {
		p.PerceptualMatchThreshold = d.PerceptualMatchThreshold
	}
	if p.ExtendedSimilarityThreshold <= 0 {
		p.ExtendedSimilarityThreshold = d.ExtendedSimilarityThreshold
	}
	if p.MaximumInterMatchSearch <= 0 {
		p.MaximumInterMatchSearch = d.MaximumInterMatchSearch
	}

	return p
}

// Matches reports whether a hamming distance means "same frame".
func (p Policy) Matches(distance int) bool {
	return distance <= p.PerceptualMatchThreshold
}

// FrameTime converts a frame index or frame count to a duration, rounded to
// the microsecond.
func (p Policy) FrameTime(frame int) time.Duration {
	return FrameTime(frame, p.normalized().FrameRate)
}

// FrameTime converts a frame index or frame count at frameRate to a duration,
// rounded to the microsecond.
func FrameTime(frame int, frameRate float64) time.Duration {
	if frameRate <= 0 {
		return 0
	}
	micros := math.Round(float64(frame) / frameRate * 1e6)
	return time.Duration(micros) * time.Microsecond
}
