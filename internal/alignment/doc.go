// Package alignment locates where two editions of the same video diverge,
// working only from per-frame fingerprints.
//
// Comparison runs in three stages:
//
//   - ExtractAnchors pairs frames whose fingerprint is unique within both
//     editions and discards any pair that would break temporal order.
//   - Refiner inspects the gap between each pair of consecutive anchors,
//     suppressing padding and narrowing the gap while its edges still match,
//     and reports what remains as a Difference.
//   - Comparer drives both over a Store and returns the differences ordered
//     by size.
//
// The engine is single threaded and deterministic. All thresholds travel in
// a Policy value so callers can compare with different settings side by side.
package alignment
