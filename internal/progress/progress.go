package progress

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"cutdiff/internal/logging"
)

// Reporter receives unit counts as a run advances.
type Reporter interface {
	Start(subject string, total int64)
	Add(n int)
	Finish()
}

// Options names what a reporter measures.
type Options struct {
	// Stage prefixes the bar description and names the log message
	// ("<stage> progress").
	Stage string
	// Unit labels the rate shown on the bar, e.g. "frames".
	Unit string
}

// New renders a terminal bar when w is a terminal and falls back to sampled
// log lines otherwise.
func New(w io.Writer, logger *slog.Logger, opts Options) Reporter {
	if IsTerminal(w) {
		return &barReporter{writer: w, opts: opts}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &logReporter{logger: logger, opts: opts}
}

// Nop returns a reporter that discards every update.
func Nop() Reporter {
	return nopReporter{}
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type barReporter struct {
	writer io.Writer
	opts   Options
	bar    *progressbar.ProgressBar
}

func (p *barReporter) Start(subject string, total int64) {
	if total <= 0 {
		total = -1
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionSetDescription(p.opts.Stage+" "+subject),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(p.opts.Unit),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *barReporter) Add(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

func (p *barReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

type logReporter struct {
	logger  *slog.Logger
	opts    Options
	sampler *logging.ProgressSampler
	subject string
	total   int64
	done    int64
}

func (p *logReporter) Start(subject string, total int64) {
	p.sampler = logging.NewProgressSampler(10)
	p.subject = subject
	p.total = total
	p.done = 0
}

func (p *logReporter) Add(n int) {
	if p.sampler == nil {
		p.Start("", 0)
	}
	p.done += int64(n)
	percent := -1.0
	if p.total > 0 {
		percent = float64(p.done) * 100 / float64(p.total)
	}
	if !p.sampler.ShouldLog(percent, p.opts.Stage) {
		return
	}
	p.logger.Info(p.opts.Stage+" progress",
		logging.String("subject", p.subject),
		logging.Int(p.opts.Unit, int(p.done)),
		logging.Float64("percent", percent),
	)
}

func (p *logReporter) Finish() {}

type nopReporter struct{}

func (nopReporter) Start(string, int64) {}

func (nopReporter) Add(int) {}

func (nopReporter) Finish() {}
