package alignment

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"cutdiff/internal/logging"
	"cutdiff/internal/services"
)

// Store is the fingerprint store contract the comparer reads from.
type Store interface {
	Source
	UniqueSharedAnchors(ctx context.Context, editionA, editionB string) ([]Anchor, error)
}

// ProgressFunc receives the number of anchor pairs refined so far.
type ProgressFunc func(done, total int)

// Result is the outcome of comparing two editions.
type Result struct {
	RunID    string
	EditionA string
	EditionB string
	Anchors  []Anchor
	// Differences are ordered by MaxDuration, smallest first.
	Differences []Difference
	// Chronological holds the same differences in anchor order.
	Chronological []Difference
	Elapsed       time.Duration
}

// Comparer runs the refiner over every consecutive anchor pair.
type Comparer struct {
	store    Store
	policy   Policy
	logger   *slog.Logger
	progress ProgressFunc
}

// NewComparer constructs a comparer over store.
func NewComparer(store Store, policy Policy, logger *slog.Logger) *Comparer {
	return &Comparer{
		store:  store,
		policy: policy.normalized(),
		logger: logger,
	}
}

// OnProgress registers fn to be called after each anchor pair is refined.
func (c *Comparer) OnProgress(fn ProgressFunc) {
	c.progress = fn
}

// Compare aligns editionA against editionB and returns every confirmed
// divergence.
func (c *Comparer) Compare(ctx context.Context, editionA, editionB string) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithStage(ctx, "compare")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(c.logger, "alignment"))

	anchors, err := c.store.UniqueSharedAnchors(ctx, editionA, editionB)
	if err != nil {
		return nil, err
	}
	logger.Info("anchors extracted",
		logging.String("edition_a", editionA),
		logging.String("edition_b", editionB),
		logging.String("anchors", humanize.Comma(int64(len(anchors)))),
	)

	refiner := NewRefiner(c.store, editionA, editionB, c.policy, logger)
	total := max(len(anchors)-1, 0)
	var found []Difference
	for i := 1; i < len(anchors); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		diff, err := refiner.Refine(ctx, anchors[i-1], anchors[i])
		if err != nil {
			return nil, err
		}
		if diff != nil {
			found = append(found, *diff)
		}
		if c.progress != nil {
			c.progress(i, total)
		}
	}

	result := &Result{
		RunID:         runID,
		EditionA:      editionA,
		EditionB:      editionB,
		Anchors:       anchors,
		Chronological: found,
		Differences:   SortDifferences(found),
		Elapsed:       time.Since(started),
	}
	logger.Info("comparison complete",
		logging.Int("differences", len(found)),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// SortDifferences returns a copy of diffs ordered by MaxDuration, smallest
// first. Ties keep their input order.
func SortDifferences(diffs []Difference) []Difference {
	sorted := slices.Clone(diffs)
	slices.SortStableFunc(sorted, func(x, y Difference) int {
		return cmp.Compare(x.MaxDuration(), y.MaxDuration())
	})
	return sorted
}
