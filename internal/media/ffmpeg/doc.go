// Package ffmpeg wraps the ffmpeg invocations cutdiff depends on: streaming
// decoded frames as raw grayscale buffers, stream-copying clips between two
// timestamps, and grabbing single still images.
package ffmpeg
