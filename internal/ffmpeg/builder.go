package ffmpeg

import (
	"github.com/backmassage/quickconv/internal/config"
)

// Job is the input to one MP3 encode: the source, its declared demuxer
// (derived from the extension; empty means auto-detect), the audio stream
// to keep and the output path.
type Job struct {
	InputPath   string
	InputFormat string
	// StreamMap is an ffmpeg -map specifier; empty selects the first audio stream.
	StreamMap  string
	OutputPath string
}

// Build constructs the complete ffmpeg argument slice for an MP3 encode.
// The retry state decides whether the declared input format is forced and
// whether timestamps are regenerated.
func Build(opts config.AudioOptions, job Job, rs *RetryState) []string {
	args := make([]string, 0, 32)

	// --- Preamble ---
	args = append(args, Command, "-hide_banner", "-nostdin", "-y")
	if opts.Verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	// --- Pre-input flags ---
	if rs.TimestampFix {
		args = append(args, "-fflags", "+genpts+discardcorrupt")
	}
	if rs.ForceFormat && job.InputFormat != "" {
		args = append(args, "-f", job.InputFormat)
	}

	// --- Input ---
	args = append(args, "-i", job.InputPath)

	// --- Streams: one audio stream; video and cover art dropped ---
	streamMap := job.StreamMap
	if streamMap == "" {
		streamMap = "0:a:0"
	}
	args = append(args, "-map", streamMap, "-vn", "-sn", "-dn")

	// --- Codec: constant bitrate MP3 ---
	args = append(args,
		"-c:a", opts.Codec,
		"-b:a", opts.Bitrate,
	)

	// --- Metadata: container tags become ID3v2.3 ---
	args = append(args, "-map_metadata", "0", "-id3v2_version", "3")

	if rs.TimestampFix {
		args = append(args, "-avoid_negative_ts", "make_zero")
	}

	// --- Output (explicit muxer: temp files do not always end in .mp3) ---
	args = append(args, "-f", "mp3", job.OutputPath)

	return args
}
