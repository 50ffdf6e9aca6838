package alignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cutdiff/internal/hamming"
	"cutdiff/internal/services"
)

func TestRefinePureInsertion(t *testing.T) {
	store := insertionStore(content("ins", 0, 6))
	refiner := NewRefiner(store, "a", "b", policy24(), nil)

	diff, err := refiner.Refine(context.Background(), store.anchor(100, 100), store.anchor(110, 116))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if diff == nil {
		t.Fatal("expected a difference for six inserted frames")
	}
	if diff.A.Duration != 0 {
		t.Fatalf("expected zero-length A range, got %v", diff.A.Duration)
	}
	if diff.B.Duration != 250*time.Millisecond {
		t.Fatalf("expected 250ms B range, got %v", diff.B.Duration)
	}
	if diff.B.Kind != KindNew {
		t.Fatalf("expected B kind new, got %q", diff.B.Kind)
	}
	// the A side is only "new" when the B span is empty
	if diff.A.Kind != KindDifferent {
		t.Fatalf("expected A kind different, got %q", diff.A.Kind)
	}
	if diff.DurationDelta != 250*time.Millisecond {
		t.Fatalf("expected 250ms delta, got %v", diff.DurationDelta)
	}
	if diff.B.StartFrame != 109 || diff.B.EndFrame != 115 {
		t.Fatalf("expected B frames 109-115 after narrowing, got %d-%d", diff.B.StartFrame, diff.B.EndFrame)
	}
	if diff.A.StartFrame != 109 || diff.A.EndFrame != 109 {
		t.Fatalf("expected A frames 109-109 after narrowing, got %d-%d", diff.A.StartFrame, diff.A.EndFrame)
	}
	if got, want := diff.B.Start, FrameTime(109, 24); got != want {
		t.Fatalf("B start = %v, want %v", got, want)
	}
}

func TestRefinePaddingSuppressed(t *testing.T) {
	// six frames that differ from the next content frame by two bits
	next := frame("c110")
	padding := []hamming.Fingerprint{near(next, 2), near(next, 1), near(next, 2), near(next, 3), near(next, 1), near(next, 2)}
	store := insertionStore(padding)
	refiner := NewRefiner(store, "a", "b", policy24(), nil)

	diff, err := refiner.Refine(context.Background(), store.anchor(100, 100), store.anchor(110, 116))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if diff != nil {
		t.Fatalf("expected padding to be suppressed, got %+v", diff)
	}
}

func TestRefinePaddingLongerThanThresholdIsReported(t *testing.T) {
	next := frame("c110")
	padding := make([]hamming.Fingerprint, 12)
	for i := range padding {
		padding[i] = near(next, 1)
	}
	store := insertionStore(padding)
	refiner := NewRefiner(store, "a", "b", policy24(), nil)

	diff, err := refiner.Refine(context.Background(), store.anchor(100, 100), store.anchor(110, 122))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if diff == nil {
		t.Fatal("expected twelve near-duplicate frames to be reported")
	}
	if diff.B.Duration != 500*time.Millisecond {
		t.Fatalf("expected 500ms B range, got %v", diff.B.Duration)
	}
}

func TestRefinePaddingNeedsOneNeighbourForAllFrames(t *testing.T) {
	// half the frames resemble the previous anchor, half the next one
	prev := frame("c109")
	next := frame("c110")
	padding := []hamming.Fingerprint{near(prev, 1), near(prev, 1), near(prev, 1), near(next, 1), near(next, 1), near(next, 1)}
	store := insertionStore(padding)
	refiner := NewRefiner(store, "a", "b", policy24(), nil)

	diff, err := refiner.Refine(context.Background(), store.anchor(109, 109), store.anchor(110, 116))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if diff == nil {
		t.Fatal("expected mixed padding to be reported")
	}
}

func TestRefineAlteredFootage(t *testing.T) {
	// B replaces four content frames with eight new ones
	store := newMemoryStore()
	store.put("a", content("c", 0, 100))
	store.put("b", concat(content("c", 0, 40), content("alt", 0, 8), content("c", 44, 100)))
	refiner := NewRefiner(store, "a", "b", policy24(), nil)

	diff, err := refiner.Refine(context.Background(), store.anchor(30, 30), store.anchor(50, 54))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if diff == nil {
		t.Fatal("expected a difference")
	}
	if diff.A.StartFrame != 39 || diff.A.EndFrame != 43 {
		t.Fatalf("expected A frames 39-43, got %d-%d", diff.A.StartFrame, diff.A.EndFrame)
	}
	if diff.B.StartFrame != 39 || diff.B.EndFrame != 47 {
		t.Fatalf("expected B frames 39-47, got %d-%d", diff.B.StartFrame, diff.B.EndFrame)
	}
	if diff.A.Kind != KindDifferent || diff.B.Kind != KindDifferent {
		t.Fatalf("expected both kinds different, got %q/%q", diff.A.Kind, diff.B.Kind)
	}
	if diff.A.Duration != FrameTime(4, 24) || diff.B.Duration != FrameTime(8, 24) {
		t.Fatalf("unexpected durations %v/%v", diff.A.Duration, diff.B.Duration)
	}
	if diff.DurationDelta != diff.B.Duration-diff.A.Duration {
		t.Fatalf("unexpected delta %v", diff.DurationDelta)
	}
}

// failingSource fails every read so tests can prove no I/O happened.
type failingSource struct{}

func (failingSource) Range(context.Context, string, int, int) ([]Record, error) {
	return nil, errors.New("unexpected read")
}

func TestRefineLagWorkaroundReportsNothingWhenLagDoesNotGrow(t *testing.T) {
	refiner := NewRefiner(failingSource{}, "a", "b", policy24(), nil)
	anchor := func(a, b int) Anchor {
		return Anchor{A: Record{Index: a, Fingerprint: frame("x")}, B: Record{Index: b, Fingerprint: frame("x")}}
	}

	cases := []struct {
		name     string
		previous Anchor
		current  Anchor
	}{
		{"same lag", anchor(100, 100), anchor(110, 110)},
		{"frames only in A", anchor(100, 100), anchor(120, 110)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			diff, err := refiner.Refine(context.Background(), tc.previous, tc.current)
			if err != nil {
				t.Fatalf("Refine: %v", err)
			}
			if diff != nil {
				t.Fatalf("expected no difference, got %+v", diff)
			}
		})
	}
}

func TestRefineNegativeSpanWorkaroundReportsNothing(t *testing.T) {
	// A holds five near-identical frames between anchors, B holds eight, so
	// the start and end matches overlap and the narrowed anchors cross.
	still := frame("still")
	store := newMemoryStore()
	store.put("a", concat(
		[]hamming.Fingerprint{frame("p")},
		[]hamming.Fingerprint{still, near(still, 1), still, near(still, 1), still},
		[]hamming.Fingerprint{frame("q")},
	))
	store.put("b", concat(
		[]hamming.Fingerprint{frame("p")},
		[]hamming.Fingerprint{still, near(still, 1), still, near(still, 1), still, near(still, 1), still, near(still, 1)},
		[]hamming.Fingerprint{frame("q")},
	))
	refiner := NewRefiner(store, "a", "b", policy24(), nil)

	diff, steps, err := refiner.refine(context.Background(), store.anchor(0, 0), store.anchor(6, 9))
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if diff != nil {
		t.Fatalf("expected crossed anchors to report nothing, got %+v", diff)
	}
	if steps != 1 {
		t.Fatalf("expected to stop after one narrowing step, got %d", steps)
	}
}

func TestRefineConvergesWithinGapLength(t *testing.T) {
	cases := []struct {
		name     string
		inserted int
		from, to [2]int
	}{
		{"short insertion", 6, [2]int{100, 100}, [2]int{110, 116}},
		{"insertion at gap start", 30, [2]int{109, 109}, [2]int{111, 141}},
		{"wide gap", 40, [2]int{20, 20}, [2]int{190, 230}},
		{"one frame", 1, [2]int{100, 100}, [2]int{120, 121}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := insertionStore(content("ins", 0, tc.inserted))
			refiner := NewRefiner(store, "a", "b", policy24(), nil)
			previous := store.anchor(tc.from[0], tc.from[1])
			current := store.anchor(tc.to[0], tc.to[1])

			diff, steps, err := refiner.refine(context.Background(), previous, current)
			if err != nil {
				t.Fatalf("refine: %v", err)
			}
			gap := current.A.Index - previous.A.Index
			if steps > gap {
				t.Fatalf("took %d steps for a %d frame gap", steps, gap)
			}
			if diff == nil {
				t.Fatal("expected a difference")
			}
			if diff.B.Duration != FrameTime(tc.inserted, 24) {
				t.Fatalf("expected %d inserted frames, got %v", tc.inserted, diff.B.Duration)
			}
		})
	}
}

func TestRefineReadsEachGapOnce(t *testing.T) {
	store := insertionStore(content("ins", 0, 6))
	refiner := NewRefiner(store, "a", "b", policy24(), nil)

	if _, steps, err := refiner.refine(context.Background(), store.anchor(100, 100), store.anchor(110, 116)); err != nil {
		t.Fatalf("refine: %v", err)
	} else if steps == 0 {
		t.Fatal("expected at least one narrowing step")
	}
	if store.rangeCalls != 2 {
		t.Fatalf("expected one read per edition, got %d", store.rangeCalls)
	}
}

func TestRefineSearchWindowLimitsNarrowing(t *testing.T) {
	store := insertionStore(content("ins", 0, 6))
	p := policy24()
	p.MaximumInterMatchSearch = 4
	refiner := NewRefiner(store, "a", "b", p, nil)

	diff, steps, err := refiner.refine(context.Background(), store.anchor(90, 90), store.anchor(110, 116))
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if diff == nil || diff.B.StartFrame != 109 {
		t.Fatalf("expected narrowing to reach frame 109, got %+v", diff)
	}
	// 19 matching frames at four per step
	if steps != 5 {
		t.Fatalf("expected 5 steps with a window of 4, got %d", steps)
	}
}

// gappySource drops one frame from every read.
type gappySource struct{ *memoryStore }

func (g gappySource) Range(ctx context.Context, edition string, lower, upper int) ([]Record, error) {
	records, err := g.memoryStore.Range(ctx, edition, lower, upper)
	if err != nil || len(records) < 3 {
		return records, err
	}
	return append(records[:1], records[2:]...), nil
}

func TestRefineRejectsMissingFrames(t *testing.T) {
	store := insertionStore(content("ins", 0, 6))
	refiner := NewRefiner(gappySource{store}, "a", "b", policy24(), nil)

	_, err := refiner.Refine(context.Background(), store.anchor(100, 100), store.anchor(110, 116))
	var seqErr *SequenceError
	if !errors.As(err, &seqErr) {
		t.Fatalf("expected SequenceError, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if seqErr.Previous != 101 || seqErr.Current != 103 {
		t.Fatalf("expected frames 101 and 103 named, got %+v", seqErr)
	}
	msg := err.Error()
	for _, want := range []string{"101", "103", FormatTimestamp(FrameTime(103, 24))} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestRefineSurfacesSourceErrors(t *testing.T) {
	refiner := NewRefiner(failingSource{}, "a", "b", policy24(), nil)
	previous := Anchor{A: Record{Index: 0}, B: Record{Index: 0}}
	current := Anchor{A: Record{Index: 5}, B: Record{Index: 9}}

	_, err := refiner.Refine(context.Background(), previous, current)
	if err == nil || !strings.Contains(err.Error(), fmt.Sprintf("read a frames %d-%d", 1, 5)) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}
