// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe with stream, format and chapter sections enabled.
// Result helpers expose what frame hashing needs: the primary video stream,
// its frame rate, an exact or estimated frame count, and embedded chapters.
package ffprobe
