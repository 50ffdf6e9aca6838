package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"
)

func setHelperCommand(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("FFMPEG_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "frames":
		for i := range 3 {
			frame := make([]byte, 16)
			for j := range frame {
				frame[j] = byte(i)
			}
			_, _ = os.Stdout.Write(frame)
		}
		os.Exit(0)
	case "truncated":
		_, _ = os.Stdout.Write(make([]byte, 20))
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "invalid data found when processing input")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func TestFramesYieldsWholeFrames(t *testing.T) {
	var args []string
	setHelperCommand(t, "frames", &args)

	stream, err := New("").Frames(context.Background(), "movie.mkv", 4)
	if err != nil {
		t.Fatalf("frames: %v", err)
	}
	defer stream.Close()

	for want := range 3 {
		index, pixels, err := stream.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", want, err)
		}
		if index != want || len(pixels) != 16 || pixels[0] != byte(want) {
			t.Fatalf("unexpected frame %d: %v", index, pixels)
		}
	}
	if _, _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if stream.Decoded() != 3 {
		t.Fatalf("expected 3 decoded frames, got %d", stream.Decoded())
	}
	if !containsPair(args, "-vf", "scale=4:4:flags=area") || !containsPair(args, "-pix_fmt", "gray") {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestFramesReportsTruncatedOutput(t *testing.T) {
	setHelperCommand(t, "truncated", nil)
	stream, err := New("ffmpeg").Frames(context.Background(), "movie.mkv", 4)
	if err != nil {
		t.Fatalf("frames: %v", err)
	}
	if _, _, err := stream.Next(); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if _, _, err := stream.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestFramesSurfacesDecoderFailure(t *testing.T) {
	setHelperCommand(t, "failure", nil)
	stream, err := New("ffmpeg").Frames(context.Background(), "movie.mkv", 4)
	if err != nil {
		t.Fatalf("frames: %v", err)
	}
	_, _, err = stream.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestClipArguments(t *testing.T) {
	var args []string
	setHelperCommand(t, "success", &args)
	err := New("ffmpeg").Clip(context.Background(), "in.mkv", "out.mkv", 1500*time.Millisecond, 3*time.Second)
	if err != nil {
		t.Fatalf("clip: %v", err)
	}
	if !containsPair(args, "-ss", "1.500000") || !containsPair(args, "-to", "3.000000") || !containsPair(args, "-c", "copy") {
		t.Fatalf("unexpected args %v", args)
	}
	if err := New("ffmpeg").Clip(context.Background(), "in.mkv", "out.mkv", time.Second, time.Second); err == nil {
		t.Fatal("expected empty clip to fail")
	}
}

func TestStillSeeksBeforeInput(t *testing.T) {
	var args []string
	setHelperCommand(t, "success", &args)
	if err := New("ffmpeg").Still(context.Background(), "in.mkv", "out.png", 2*time.Second); err != nil {
		t.Fatalf("still: %v", err)
	}
	ss, input := indexOf(args, "-ss"), indexOf(args, "-i")
	if ss < 0 || input < 0 || ss > input {
		t.Fatalf("expected -ss before -i, got %v", args)
	}
}

func TestRunReportsFailureOutput(t *testing.T) {
	setHelperCommand(t, "failure", nil)
	err := New("ffmpeg").Still(context.Background(), "in.mkv", "out.png", 0)
	if err == nil {
		t.Fatal("expected failure")
	}
}

func TestSecondsClampsNegative(t *testing.T) {
	if got := Seconds(-time.Second); got != "0.000000" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Seconds(4583333 * time.Microsecond); got != "4.583333" {
		t.Fatalf("unexpected %q", got)
	}
}

func containsPair(args []string, flag, value string) bool {
	i := indexOf(args, flag)
	return i >= 0 && i+1 < len(args) && args[i+1] == value
}

func indexOf(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
