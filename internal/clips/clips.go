package clips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cutdiff/internal/alignment"
	"cutdiff/internal/logging"
	"cutdiff/internal/services"
)

// Cutter produces clips and stills from a media file.
type Cutter interface {
	Clip(ctx context.Context, path, output string, start, end time.Duration) error
	Still(ctx context.Context, path, output string, ts time.Duration) error
}

// Source is one edition's media file and the label used in file names.
type Source struct {
	Label string
	Path  string
}

// Options selects what is extracted.
type Options struct {
	OutputDir  string
	Padding    time.Duration
	TrimVideos bool
	GrabFrames bool
	// StillExt is the still image extension, ".png" by default.
	StillExt string
}

// Summary lists the files an extraction wrote or found in place.
type Summary struct {
	Written []string
	Skipped []string
}

// Extractor cuts clips and stills for a list of differences.
type Extractor struct {
	cutter Cutter
	logger *slog.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(cutter Cutter, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{cutter: cutter, logger: logging.NewComponentLogger(logger, "clips")}
}

type job struct {
	output string
	clip   bool
	source string
	start  time.Duration
	end    time.Duration
}

// Plan returns the outputs Extract would produce for diffs, in order.
func Plan(diffs []alignment.Difference, a, b Source, opts Options) []string {
	jobs := plan(diffs, a, b, opts)
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.output)
	}
	return out
}

func plan(diffs []alignment.Difference, a, b Source, opts Options) []job {
	stillExt := opts.StillExt
	if stillExt == "" {
		stillExt = ".png"
	}
	var jobs []job
	clip := func(i int, src Source, start, end time.Duration) {
		start = max(start, 0)
		name := fmt.Sprintf("%d-%s-%s-%s%s", i, fileTime(start), fileTime(end), src.Label, filepath.Ext(src.Path))
		jobs = append(jobs, job{output: filepath.Join(opts.OutputDir, name), clip: true, source: src.Path, start: start, end: end})
	}
	still := func(i int, src Source, ts time.Duration) {
		ts = max(ts, 0)
		name := fmt.Sprintf("%d-%s-%s%s", i, fileTime(ts), src.Label, stillExt)
		jobs = append(jobs, job{output: filepath.Join(opts.OutputDir, name), source: src.Path, start: ts})
	}
	for i, diff := range diffs {
		if opts.TrimVideos {
			clip(i, a, diff.A.Start-opts.Padding, diff.A.Start)
			clip(i, a, diff.A.End-diff.A.Duration, diff.A.End+opts.Padding)
			clip(i, b, diff.B.Start-opts.Padding, diff.B.End+opts.Padding)
		}
		if opts.GrabFrames {
			still(i, a, diff.A.Start)
			still(i, b, diff.B.Start)
			still(i, a, diff.A.End)
			still(i, b, diff.B.End)
		}
	}
	return jobs
}

// Extract cuts every planned output that does not exist yet. Difference
// numbers follow the order of diffs.
func (e *Extractor) Extract(ctx context.Context, diffs []alignment.Difference, a, b Source, opts Options) (*Summary, error) {
	if !opts.TrimVideos && !opts.GrabFrames {
		return &Summary{}, nil
	}
	for _, src := range []Source{a, b} {
		if strings.TrimSpace(src.Label) == "" {
			return nil, services.Wrap(services.ErrValidation, "clips", "extract", "edition label required", nil)
		}
		if _, err := os.Stat(src.Path); err != nil {
			return nil, services.Wrap(services.ErrNotFound, "clips", "extract", src.Path, err)
		}
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "clips", "create output dir", opts.OutputDir, err)
	}

	summary := &Summary{}
	for _, j := range plan(diffs, a, b, opts) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := os.Stat(j.output); err == nil {
			summary.Skipped = append(summary.Skipped, j.output)
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return summary, fmt.Errorf("stat %s: %w", j.output, err)
		}
		if j.clip && j.end <= j.start {
			e.logger.Debug("empty clip skipped", logging.String("output", j.output))
			continue
		}

		var err error
		if j.clip {
			err = e.cutter.Clip(ctx, j.source, j.output, j.start, j.end)
		} else {
			err = e.cutter.Still(ctx, j.source, j.output, j.start)
		}
		if err != nil {
			return summary, services.Wrap(services.ErrExternalTool, "clips", "cut", j.output, err)
		}
		summary.Written = append(summary.Written, j.output)
		e.logger.Debug("output written", logging.String("output", j.output))
	}
	e.logger.Info("extraction finished",
		logging.Int("differences", len(diffs)),
		logging.Int("written", len(summary.Written)),
		logging.Int("skipped", len(summary.Skipped)),
	)
	return summary, nil
}

func fileTime(d time.Duration) string {
	return strings.ReplaceAll(alignment.FormatTimestamp(d), ":", ".")
}
