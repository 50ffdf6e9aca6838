// Package report renders comparison results.
//
// The table lists differences smallest first with per-edition start, end,
// kind and duration plus the duration delta, optionally annotated with the
// chapter each range starts in. The JSON form carries one array per edition
// of non-empty ranges in chronological order, alongside a structured document
// used for machine output and publishing.
package report
