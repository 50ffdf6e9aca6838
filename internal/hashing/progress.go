package hashing

import (
	"io"
	"log/slog"

	"cutdiff/internal/progress"
)

// Progress receives frame counts as a run advances.
type Progress = progress.Reporter

// NewProgress reports hashing on a terminal bar when w is a terminal and as
// sampled "hashing progress" log lines otherwise.
func NewProgress(w io.Writer, logger *slog.Logger) Progress {
	return progress.New(w, logger, progress.Options{Stage: "hashing", Unit: "frames"})
}
