package hashing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"cutdiff/internal/chapters"
	"cutdiff/internal/config"
	"cutdiff/internal/framestore"
	"cutdiff/internal/logging"
	"cutdiff/internal/media/ffmpeg"
	"cutdiff/internal/media/ffprobe"
	"cutdiff/internal/phash"
	"cutdiff/internal/progress"
	"cutdiff/internal/services"
)

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// FrameSource yields decoded grayscale frames in order.
type FrameSource interface {
	Next() (int, []byte, error)
	Close() error
}

// Decoder starts decoding a media file into size x size frames.
type Decoder interface {
	Frames(ctx context.Context, path string, size int) (FrameSource, error)
}

type ffmpegDecoder struct {
	runner *ffmpeg.Runner
}

func (d ffmpegDecoder) Frames(ctx context.Context, path string, size int) (FrameSource, error) {
	stream, err := d.runner.Frames(ctx, path, size)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Options selects what a run hashes.
type Options struct {
	Edition string
	Source  string
	// FrameRate overrides the probed frame rate when positive.
	FrameRate float64
	// Replace drops an existing edition of the same name first.
	Replace bool
}

// Summary reports a completed run.
type Summary struct {
	Edition    string
	Source     string
	Frames     int
	FrameRate  float64
	Algorithms []string
	Chapters   int
	Elapsed    time.Duration
}

// Pipeline hashes video files into a frame store.
type Pipeline struct {
	cfg      *config.Config
	store    *framestore.Store
	logger   *slog.Logger
	probe    ProbeFunc
	decoder  Decoder
	progress Progress
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithProbe replaces the ffprobe invocation.
func WithProbe(fn ProbeFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.probe = fn
		}
	}
}

// WithDecoder replaces the ffmpeg frame decoder.
func WithDecoder(decoder Decoder) Option {
	return func(p *Pipeline) {
		if decoder != nil {
			p.decoder = decoder
		}
	}
}

// WithProgress routes frame counts to reporter.
func WithProgress(reporter Progress) Option {
	return func(p *Pipeline) {
		if reporter != nil {
			p.progress = reporter
		}
	}
}

// NewPipeline constructs a hashing pipeline.
func NewPipeline(cfg *config.Config, store *framestore.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "hashing"),
		probe:    ffprobe.Inspect,
		decoder:  ffmpegDecoder{runner: ffmpeg.New(cfg.FFmpegBinary())},
		progress: progress.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run hashes one source file into a new edition.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	started := time.Now()
	name, err := framestore.NormalizeEdition(opts.Edition)
	if err != nil {
		return nil, err
	}
	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "hashing", "resolve source", opts.Source, err)
	}
	if _, err := os.Stat(source); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "hashing", "stat source", source, err)
	}
	algorithms, err := phash.NewSet(p.cfg.Hashing.Algorithms)
	if err != nil {
		return nil, err
	}

	ctx = services.WithStage(services.WithEdition(ctx, name), "hashing")
	logger := logging.WithContext(ctx, p.logger)

	probe, err := p.probe(ctx, p.cfg.FFprobeBinary(), source)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "hashing", "ffprobe", source, err)
	}
	stream, ok := probe.VideoStream()
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "hashing", "ffprobe",
			fmt.Sprintf("%s has no video stream", source), nil)
	}
	frameRate := opts.FrameRate
	if frameRate <= 0 {
		frameRate = stream.FrameRate()
	}
	if frameRate <= 0 {
		frameRate = p.cfg.Alignment.FrameRate
		logging.WarnWithContext(logger, "frame rate unknown; using configured rate", "frame_rate_fallback",
			logging.Float64("frame_rate", frameRate),
			logging.String(logging.FieldErrorHint, "pass --frame-rate to record the source's real rate"),
		)
	}
	expected := probe.FrameCount(stream)

	unlock, err := p.store.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if opts.Replace {
		if err := p.store.DeleteEdition(ctx, name); err != nil && !errors.Is(err, services.ErrNotFound) {
			return nil, err
		}
	}
	edition, err := p.store.CreateEdition(ctx, framestore.Edition{
		Name:       name,
		Source:     source,
		FrameRate:  frameRate,
		Algorithms: algorithms.Names(),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("hashing started",
		logging.String("source", source),
		logging.Float64("frame_rate", frameRate),
		logging.String("expected_frames", humanize.Comma(expected)),
		logging.Any("algorithms", edition.Algorithms),
	)

	frames, err := p.hashFrames(ctx, edition.Name, source, algorithms, expected)
	if err != nil {
		cleanupCtx := context.WithoutCancel(ctx)
		if delErr := p.store.DeleteEdition(cleanupCtx, edition.Name); delErr != nil {
			logger.Error("remove partial edition failed", logging.Error(delErr))
		}
		return nil, err
	}
	if frames == 0 {
		if delErr := p.store.DeleteEdition(context.WithoutCancel(ctx), edition.Name); delErr != nil {
			logger.Error("remove partial edition failed", logging.Error(delErr))
		}
		return nil, services.Wrap(services.ErrValidation, "hashing", "decode",
			fmt.Sprintf("%s decoded to zero frames", source), nil)
	}
	if expected > 0 && math.Abs(float64(int64(frames)-expected)) > float64(expected)/100 {
		logging.WarnWithContext(logger, "decoded frame count differs from container", "frame_count_mismatch",
			logging.Int("decoded", frames),
			logging.Int("expected", int(expected)),
			logging.String(logging.FieldImpact, "timestamps drift if the container frame rate is wrong"),
		)
	}

	chapterCount := 0
	if list := containerChapters(probe); len(list) > 0 {
		if err := p.store.ReplaceChapters(ctx, edition.Name, list); err != nil {
			return nil, err
		}
		chapterCount = len(list)
	}

	summary := &Summary{
		Edition:    edition.Name,
		Source:     source,
		Frames:     frames,
		FrameRate:  frameRate,
		Algorithms: edition.Algorithms,
		Chapters:   chapterCount,
		Elapsed:    time.Since(started),
	}
	logger.Info("hashing finished",
		logging.String("frames", humanize.Comma(int64(frames))),
		logging.Int("chapters", chapterCount),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (p *Pipeline) hashFrames(ctx context.Context, edition, source string, algorithms *phash.Set, expected int64) (int, error) {
	decodeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames, err := p.decoder.Frames(decodeCtx, source, p.cfg.Hashing.FrameSize)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "hashing", "start decoder", source, err)
	}
	defer frames.Close()

	p.progress.Start(edition, expected)
	defer p.progress.Finish()

	batchSize := max(p.cfg.Hashing.BatchSize, 1)
	total := 0
	for {
		batch, done, err := p.readBatch(ctx, frames, batchSize)
		if err != nil {
			return total, err
		}
		if len(batch) > 0 {
			hashed, err := p.hashBatch(ctx, batch, algorithms)
			if err != nil {
				return total, err
			}
			if err := p.store.InsertFrames(ctx, edition, hashed); err != nil {
				return total, err
			}
			total += len(hashed)
			p.progress.Add(len(hashed))
		}
		if done {
			return total, nil
		}
	}
}

type rawFrame struct {
	index  int
	pixels []byte
}

func (p *Pipeline) readBatch(ctx context.Context, frames FrameSource, size int) ([]rawFrame, bool, error) {
	batch := make([]rawFrame, 0, size)
	for len(batch) < size {
		if err := ctx.Err(); err != nil {
			return nil, true, err
		}
		index, pixels, err := frames.Next()
		if errors.Is(err, io.EOF) {
			return batch, true, nil
		}
		if err != nil {
			return nil, true, services.Wrap(services.ErrExternalTool, "hashing", "decode", "", err)
		}
		batch = append(batch, rawFrame{index: index, pixels: pixels})
	}
	return batch, false, nil
}

func (p *Pipeline) hashBatch(ctx context.Context, batch []rawFrame, algorithms *phash.Set) ([]framestore.Frame, error) {
	out := make([]framestore.Frame, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Hashing.Workers, 1))
	for i, raw := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frame := phash.Frame{Size: p.cfg.Hashing.FrameSize, Pixels: raw.pixels}
			if err := frame.Validate(); err != nil {
				return services.Wrap(services.ErrExternalTool, "hashing", "decode",
					fmt.Sprintf("frame %d", raw.index), err)
			}
			hashes, err := algorithms.Compute(frame)
			if err != nil {
				return services.Wrap(services.ErrValidation, "hashing", "fingerprint",
					fmt.Sprintf("frame %d", raw.index), err)
			}
			out[i] = framestore.Frame{Index: raw.index, Hashes: hashes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func containerChapters(probe ffprobe.Result) []chapters.Chapter {
	list := make([]chapters.Chapter, 0, len(probe.Chapters))
	for i, chapter := range probe.Chapters {
		start := chapter.StartSeconds()
		if math.IsNaN(start) || start < 0 {
			continue
		}
		title := chapter.Title()
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		list = append(list, chapters.Chapter{
			Start: time.Duration(math.Round(start*1e6)) * time.Microsecond,
			Title: title,
		})
	}
	return list
}
