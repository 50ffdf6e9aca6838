package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cutdiff/internal/alignment"
	"cutdiff/internal/chapters"
)

// Options controls labels and annotations.
type Options struct {
	LabelA    string
	LabelB    string
	ChaptersA []chapters.Chapter
	ChaptersB []chapters.Chapter
	// Markdown renders a GitHub-flavoured table instead of a boxed one.
	Markdown bool
}

func (o Options) labels() (string, string) {
	return label(o.LabelA, "A"), label(o.LabelB, "B")
}

func label(value, fallback string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return fallback
	}
	return cases.Title(language.Und).String(value)
}

// WriteTable writes the count line and the differences table, smallest
// divergence first.
func WriteTable(w io.Writer, result *alignment.Result, opts Options) error {
	diffs := result.Differences
	if _, err := fmt.Fprintf(w, "Count (%d):\n\n", len(diffs)); err != nil {
		return err
	}
	rendered := Table(diffs, opts)
	if rendered == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, rendered)
	return err
}

// Table renders diffs in the given order.
func Table(diffs []alignment.Difference, opts Options) string {
	if len(diffs) == 0 {
		return ""
	}
	labelA, labelB := opts.labels()
	withChaptersA := len(opts.ChaptersA) > 0
	withChaptersB := len(opts.ChaptersB) > 0

	header := table.Row{labelA + " Start", labelA + " End", labelA + " Type"}
	if withChaptersA {
		header = append(header, labelA+" Chapter")
	}
	header = append(header, labelB+" Start", labelB+" End", labelB+" Type")
	if withChaptersB {
		header = append(header, labelB+" Chapter")
	}
	header = append(header, labelA+" Range", labelB+" Range", "Range Difference")

	tw := table.NewWriter()
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	tw.AppendHeader(header)
	for _, diff := range diffs {
		row := table.Row{
			alignment.FormatTimestamp(diff.A.Start),
			alignment.FormatTimestamp(diff.A.End),
			string(diff.A.Kind),
		}
		if withChaptersA {
			row = append(row, chapterLabel(opts.ChaptersA, diff.A.Start))
		}
		row = append(row,
			alignment.FormatTimestamp(diff.B.Start),
			alignment.FormatTimestamp(diff.B.End),
			string(diff.B.Kind),
		)
		if withChaptersB {
			row = append(row, chapterLabel(opts.ChaptersB, diff.B.Start))
		}
		row = append(row,
			alignment.FormatTimestamp(diff.A.Duration),
			alignment.FormatTimestamp(diff.B.Duration),
			alignment.FormatTimestamp(diff.DurationDelta),
		)
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	if opts.Markdown {
		return tw.RenderMarkdown()
	}
	return tw.Render()
}

func chapterLabel(list []chapters.Chapter, ts time.Duration) string {
	chapter, number, ok := chapters.At(list, ts)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02d %s", number, chapter.Title)
}

// Entry is one range in the per-edition JSON arrays.
type Entry struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Type      string `json:"type"`
}

// Entries returns the non-empty ranges picked from diffs, in diffs' order.
func Entries(diffs []alignment.Difference, side func(alignment.Difference) alignment.Range) []Entry {
	out := make([]Entry, 0, len(diffs))
	for _, diff := range diffs {
		r := side(diff)
		if r.Duration <= 0 {
			continue
		}
		out = append(out, Entry{
			StartTime: alignment.FormatTimestamp(r.Start),
			EndTime:   alignment.FormatTimestamp(r.End),
			Type:      string(r.Kind),
		})
	}
	return out
}

// SideA selects a difference's edition A range.
func SideA(d alignment.Difference) alignment.Range { return d.A }

// SideB selects a difference's edition B range.
func SideB(d alignment.Difference) alignment.Range { return d.B }

// WriteEntries writes one compact JSON array per edition, one per line, in
// chronological order.
func WriteEntries(w io.Writer, result *alignment.Result) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(Entries(result.Chronological, SideA)); err != nil {
		return err
	}
	return enc.Encode(Entries(result.Chronological, SideB))
}

// Range is the machine-readable form of alignment.Range.
type Range struct {
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Duration       string  `json:"duration"`
	StartSeconds   float64 `json:"start_seconds"`
	DurationFrames int     `json:"duration_frames"`
	Type           string  `json:"type"`
	StartFrame     int     `json:"start_frame"`
	EndFrame       int     `json:"end_frame"`
	Chapter        string  `json:"chapter,omitempty"`
}

// Difference is the machine-readable form of alignment.Difference.
type Difference struct {
	A               Range  `json:"a"`
	B               Range  `json:"b"`
	RangeDifference string `json:"range_difference"`
}

// Document is the full machine-readable comparison report.
type Document struct {
	RunID       string       `json:"run_id"`
	EditionA    string       `json:"edition_a"`
	EditionB    string       `json:"edition_b"`
	LabelA      string       `json:"label_a"`
	LabelB      string       `json:"label_b"`
	Anchors     int          `json:"anchors"`
	Count       int          `json:"count"`
	Differences []Difference `json:"differences"`
	A           []Entry      `json:"a_ranges"`
	B           []Entry      `json:"b_ranges"`
}

// NewDocument converts a comparison result into its JSON document.
func NewDocument(result *alignment.Result, opts Options) Document {
	labelA, labelB := opts.labels()
	doc := Document{
		RunID:       result.RunID,
		EditionA:    result.EditionA,
		EditionB:    result.EditionB,
		LabelA:      labelA,
		LabelB:      labelB,
		Anchors:     len(result.Anchors),
		Count:       len(result.Differences),
		Differences: make([]Difference, 0, len(result.Differences)),
		A:           Entries(result.Chronological, SideA),
		B:           Entries(result.Chronological, SideB),
	}
	for _, diff := range result.Differences {
		doc.Differences = append(doc.Differences, Difference{
			A:               newRange(diff.A, opts.ChaptersA),
			B:               newRange(diff.B, opts.ChaptersB),
			RangeDifference: alignment.FormatTimestamp(diff.DurationDelta),
		})
	}
	return doc
}

func newRange(r alignment.Range, list []chapters.Chapter) Range {
	out := Range{
		Start:          alignment.FormatTimestamp(r.Start),
		End:            alignment.FormatTimestamp(r.End),
		Duration:       alignment.FormatTimestamp(r.Duration),
		StartSeconds:   r.Start.Seconds(),
		DurationFrames: max(r.EndFrame-r.StartFrame, 0),
		Type:           string(r.Kind),
		StartFrame:     r.StartFrame,
		EndFrame:       r.EndFrame,
	}
	if len(list) > 0 {
		out.Chapter = chapterLabel(list, r.Start)
	}
	return out
}

// WriteDocument writes doc as indented JSON.
func WriteDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
