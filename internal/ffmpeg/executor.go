package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/backmassage/quickconv/internal/config"
)

// Command is the ffmpeg binary name. Overridable for tests and non-PATH installs.
var Command = "ffmpeg"

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Args   []string
	Stderr string
	Err    error
}

// Execute builds and runs the ffmpeg command for a job. When verbose, stderr
// is tee'd to os.Stderr in real time; otherwise it is captured silently for
// retry classification.
func Execute(ctx context.Context, opts config.AudioOptions, job Job, rs *RetryState) ExecResult {
	args := Build(opts, job, rs)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stderrBuf bytes.Buffer
	if opts.Verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Args:   args,
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}
