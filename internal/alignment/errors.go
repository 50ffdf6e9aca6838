package alignment

import (
	"errors"
	"fmt"

	"cutdiff/internal/services"
)

// ErrNoConvergence is returned when narrowing a gap takes more steps than the
// gap has frames.
var ErrNoConvergence = errors.New("gap refinement did not converge")

// SequenceError reports frame indices that are missing or out of order within
// an edition. Comparison cannot continue past it.
type SequenceError struct {
	Edition   string
	Previous  int
	Current   int
	Expected  int
	FrameRate float64
}

func (e *SequenceError) Error() string {
	ts := func(frame int) string { return FormatTimestamp(FrameTime(frame, e.FrameRate)) }
	switch {
	case e.Previous < 0 && e.Current < 0:
		return fmt.Sprintf("edition %q: no frames found, expected frame %d (%s)",
			e.Edition, e.Expected, ts(e.Expected))
	case e.Previous < 0:
		return fmt.Sprintf("edition %q: sequence starts at frame %d (%s), expected frame %d (%s)",
			e.Edition, e.Current, ts(e.Current), e.Expected, ts(e.Expected))
	case e.Current < 0:
		return fmt.Sprintf("edition %q: sequence ends after frame %d (%s), expected frame %d (%s)",
			e.Edition, e.Previous, ts(e.Previous), e.Expected, ts(e.Expected))
	default:
		return fmt.Sprintf("edition %q: frame %d (%s) is followed by frame %d (%s), expected frame %d",
			e.Edition, e.Previous, ts(e.Previous), e.Current, ts(e.Current), e.Expected)
	}
}

func (e *SequenceError) Unwrap() error {
	return services.ErrValidation
}

// ValidateSequence checks that records hold frames 0..n-1 in order.
func ValidateSequence(edition string, records []Record, frameRate float64) error {
	return checkContiguous(edition, records, 0, -1, frameRate)
}

// checkContiguous verifies records cover [first, upper) without gaps. A
// negative upper accepts any length.
func checkContiguous(edition string, records []Record, first, upper int, frameRate float64) error {
	expected := first
	previous := -1
	for _, record := range records {
		if record.Index != expected {
			return &SequenceError{Edition: edition, Previous: previous, Current: record.Index, Expected: expected, FrameRate: frameRate}
		}
		previous = record.Index
		expected++
	}
	if upper >= 0 && expected < upper {
		return &SequenceError{Edition: edition, Previous: previous, Current: -1, Expected: expected, FrameRate: frameRate}
	}
	return nil
}
