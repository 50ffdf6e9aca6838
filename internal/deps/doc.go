// Package deps resolves the external binaries cutdiff runs (ffmpeg and
// ffprobe) and reports which are missing.
package deps
