// Package ffmpeg builds and runs the MP3 encode command and classifies
// ffmpeg failures so the caller can retry with one fix per attempt.
//
// Files are split along the command lifecycle: builder.go (argument list),
// executor.go (run and capture stderr), errors.go (stderr classification),
// retry.go (which fixes have been applied).
package ffmpeg
