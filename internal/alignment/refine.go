package alignment

import (
	"context"
	"fmt"
	"log/slog"

	"cutdiff/internal/hamming"
	"cutdiff/internal/logging"
	"cutdiff/internal/services"
)

// Source serves ordered fingerprint records for one edition, lower bound
// inclusive and upper bound exclusive.
type Source interface {
	Range(ctx context.Context, edition string, lower, upper int) ([]Record, error)
}

// Refiner decides whether the gap between two consecutive anchors is a real
// divergence and narrows it to the smallest bounding frames.
type Refiner struct {
	source   Source
	editionA string
	editionB string
	policy   Policy
	logger   *slog.Logger
}

// NewRefiner constructs a refiner reading the two named editions from source.
func NewRefiner(source Source, editionA, editionB string, policy Policy, logger *slog.Logger) *Refiner {
	return &Refiner{
		source:   source,
		editionA: editionA,
		editionB: editionB,
		policy:   policy.normalized(),
		logger:   logging.NewComponentLogger(logger, "refiner"),
	}
}

// Refine returns the divergence between previous and current, or nil when
// the gap holds no real divergence.
func (r *Refiner) Refine(ctx context.Context, previous, current Anchor) (*Difference, error) {
	diff, _, err := r.refine(ctx, previous, current)
	return diff, err
}

// gapCache holds the interior frames of the gap a Refine call started with.
// Every narrowed window lies inside it.
type gapCache struct {
	a      []Record
	b      []Record
	aFirst int
	bFirst int
}

func (g *gapCache) interiorA(previous, current Anchor) []Record {
	return g.a[previous.A.Index+1-g.aFirst : current.A.Index-g.aFirst]
}

func (g *gapCache) interiorB(previous, current Anchor) []Record {
	return g.b[previous.B.Index+1-g.bFirst : current.B.Index-g.bFirst]
}

// refine runs the narrowing loop and also reports how many narrowing steps
// it took.
func (r *Refiner) refine(ctx context.Context, previous, current Anchor) (*Difference, int, error) {
	limit := max(current.A.Index-previous.A.Index, 1)
	var cache *gapCache

	for step := 0; ; step++ {
		if step > limit {
			return nil, step, services.Wrap(services.ErrValidation, "refine", "narrow gap",
				fmt.Sprintf("frames %d-%d exceeded %d steps", previous.A.Index, current.A.Index, limit), ErrNoConvergence)
		}

		lagDelta := (current.B.Index - current.A.Index) - (previous.B.Index - previous.A.Index)
		if lagDelta < 1 {
			// Workaround kept as observed: equal or shrinking lag is never reported.
			return nil, step, nil
		}

		aFrames := current.A.Index - 1 - previous.A.Index
		bFrames := current.B.Index - 1 - previous.B.Index
		if aFrames < 0 || bFrames < 0 {
			// Workaround kept as observed: overlapping narrowed anchors are dropped.
			r.logger.Debug("negative span dropped",
				logging.Int("a_frames", aFrames),
				logging.Int("b_frames", bFrames),
				logging.Int("previous_a", previous.A.Index),
				logging.Int("current_a", current.A.Index),
			)
			return nil, step, nil
		}

		if cache == nil {
			loaded, err := r.load(ctx, previous, current)
			if err != nil {
				return nil, step, err
			}
			cache = loaded
		}
		aHashes := cache.interiorA(previous, current)
		bHashes := cache.interiorB(previous, current)

		if aFrames == 0 && r.isPadding(previous.B, current.B, bHashes, bFrames) {
			r.logger.Debug("padding suppressed", logging.String("edition", r.editionB), logging.Int("frames", bFrames))
			return nil, step, nil
		}
		if bFrames == 0 && r.isPadding(previous.A, current.A, aHashes, aFrames) {
			r.logger.Debug("padding suppressed", logging.String("edition", r.editionA), logging.Int("frames", aFrames))
			return nil, step, nil
		}

		startMatches, endMatches := r.edgeMatches(aHashes, bHashes)
		if startMatches == 0 && endMatches == 0 {
			return r.difference(previous, current, aFrames, bFrames), step, nil
		}

		nextPrevious, nextCurrent := previous, current
		if startMatches > 0 {
			nextPrevious = Anchor{A: aHashes[startMatches-1], B: bHashes[startMatches-1]}
		}
		if endMatches > 0 {
			nextCurrent = Anchor{A: aHashes[len(aHashes)-endMatches], B: bHashes[len(bHashes)-endMatches]}
		}
		previous, current = nextPrevious, nextCurrent
	}
}

func (r *Refiner) load(ctx context.Context, previous, current Anchor) (*gapCache, error) {
	aLower, aUpper := previous.A.Index+1, current.A.Index
	bLower, bUpper := previous.B.Index+1, current.B.Index

	a, err := r.source.Range(ctx, r.editionA, aLower, aUpper)
	if err != nil {
		return nil, fmt.Errorf("read %s frames %d-%d: %w", r.editionA, aLower, aUpper, err)
	}
	if err := checkContiguous(r.editionA, a, aLower, aUpper, r.policy.FrameRate); err != nil {
		return nil, err
	}
	b, err := r.source.Range(ctx, r.editionB, bLower, bUpper)
	if err != nil {
		return nil, fmt.Errorf("read %s frames %d-%d: %w", r.editionB, bLower, bUpper, err)
	}
	if err := checkContiguous(r.editionB, b, bLower, bUpper, r.policy.FrameRate); err != nil {
		return nil, err
	}
	return &gapCache{a: a, b: b, aFirst: aLower, bFirst: bLower}, nil
}

// isPadding reports whether a short one-sided insertion stays close enough to
// one of its bracketing anchors to be filler rather than new footage.
func (r *Refiner) isPadding(previous, current Record, inserted []Record, frames int) bool {
	if frames <= 0 || frames >= r.policy.ExtendedSimilarityThreshold || len(inserted) == 0 {
		return false
	}
	fingerprints := fingerprintsOf(inserted)
	toPrevious := hamming.MaxDistance(previous.Fingerprint, fingerprints)
	toCurrent := hamming.MaxDistance(current.Fingerprint, fingerprints)
	return r.policy.Matches(min(toPrevious, toCurrent))
}

// edgeMatches counts the matching frames at the start and at the end of the
// gap, comparing at most MaximumInterMatchSearch frames from each end.
func (r *Refiner) edgeMatches(a, b []Record) (int, int) {
	n := r.policy.MaximumInterMatchSearch
	threshold := r.policy.PerceptualMatchThreshold

	start := hamming.Distances(fingerprintsOf(head(a, n)), fingerprintsOf(head(b, n)))
	end := hamming.Distances(fingerprintsOf(tailReversed(a, n)), fingerprintsOf(tailReversed(b, n)))
	return hamming.LeadingWithin(start, threshold), hamming.LeadingWithin(end, threshold)
}

func (r *Refiner) difference(previous, current Anchor, aFrames, bFrames int) *Difference {
	aKind, bKind := KindDifferent, KindDifferent
	if bFrames == 0 {
		aKind = KindNew
	}
	if aFrames == 0 {
		bKind = KindNew
	}
	aRange := Range{
		Start:      r.policy.FrameTime(previous.A.Index),
		End:        r.policy.FrameTime(current.A.Index - 1),
		Duration:   r.policy.FrameTime(aFrames),
		Kind:       aKind,
		StartFrame: previous.A.Index,
		EndFrame:   current.A.Index - 1,
	}
	bRange := Range{
		Start:      r.policy.FrameTime(previous.B.Index),
		End:        r.policy.FrameTime(current.B.Index - 1),
		Duration:   r.policy.FrameTime(bFrames),
		Kind:       bKind,
		StartFrame: previous.B.Index,
		EndFrame:   current.B.Index - 1,
	}
	delta := bRange.Duration - aRange.Duration
	if delta < 0 {
		delta = -delta
	}
	return &Difference{A: aRange, B: bRange, DurationDelta: delta}
}

func head(records []Record, n int) []Record {
	return records[:min(n, len(records))]
}

func tailReversed(records []Record, n int) []Record {
	count := min(n, len(records))
	out := make([]Record, count)
	for i := range count {
		out[i] = records[len(records)-1-i]
	}
	return out
}

func fingerprintsOf(records []Record) []hamming.Fingerprint {
	out := make([]hamming.Fingerprint, len(records))
	for i, record := range records {
		out[i] = record.Fingerprint
	}
	return out
}
