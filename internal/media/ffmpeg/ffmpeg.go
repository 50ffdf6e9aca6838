package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Runner invokes ffmpeg.
type Runner struct {
	binary string
}

// New returns a Runner for the given binary, defaulting to "ffmpeg".
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary}
}

// FrameStream yields decoded frames in presentation order.
type FrameStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr bytes.Buffer
	size   int
	next   int
	done   bool
}

// Frames starts decoding the first video stream of path, scaling every frame
// to size x size 8-bit grayscale.
func (r *Runner) Frames(ctx context.Context, path string, size int) (*FrameStream, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ffmpeg frames: empty path")
	}
	if size <= 0 {
		return nil, fmt.Errorf("ffmpeg frames: invalid frame size %d", size)
	}
	args := []string{
		"-v", "error", "-nostdin",
		"-i", path,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-vf", fmt.Sprintf("scale=%d:%d:flags=area", size, size),
		"-pix_fmt", "gray",
		"-f", "rawvideo",
		"-",
	}
	stream := &FrameStream{size: size}
	cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
	cmd.Stderr = &stream.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	stream.cmd = cmd
	stream.stdout = stdout
	stream.reader = bufio.NewReaderSize(stdout, size*size*4)
	return stream, nil
}

// Next returns the next frame index and its pixels. It returns io.EOF after
// the last complete frame once ffmpeg exits cleanly.
func (s *FrameStream) Next() (int, []byte, error) {
	if s.done {
		return 0, nil, io.EOF
	}
	buf := make([]byte, s.size*s.size)
	_, err := io.ReadFull(s.reader, buf)
	switch {
	case err == nil:
		index := s.next
		s.next++
		return index, buf, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		if waitErr := s.wait(); waitErr != nil {
			return 0, nil, waitErr
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, fmt.Errorf("ffmpeg frames: truncated frame %d", s.next)
		}
		return 0, nil, io.EOF
	default:
		return 0, nil, fmt.Errorf("read ffmpeg output: %w", err)
	}
}

// Decoded reports how many complete frames have been returned.
func (s *FrameStream) Decoded() int {
	return s.next
}

// Close stops decoding and releases the process.
func (s *FrameStream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

func (s *FrameStream) wait() error {
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}

// Clip stream-copies path between start and end into output.
func (r *Runner) Clip(ctx context.Context, path, output string, start, end time.Duration) error {
	if end <= start {
		return fmt.Errorf("ffmpeg clip: end %s is not after start %s", end, start)
	}
	return r.run(ctx, "-v", "error", "-nostdin", "-y",
		"-i", path,
		"-ss", Seconds(start),
		"-to", Seconds(end),
		"-c", "copy",
		output,
	)
}

// Still writes the frame shown at ts to output.
func (r *Runner) Still(ctx context.Context, path, output string, ts time.Duration) error {
	return r.run(ctx, "-v", "error", "-nostdin", "-y",
		"-ss", Seconds(ts),
		"-i", path,
		"-frames:v", "1",
		output,
	)
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Seconds renders d as a decimal second count accepted by ffmpeg.
func Seconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}
