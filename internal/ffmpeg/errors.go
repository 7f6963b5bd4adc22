package ffmpeg

import "regexp"

// Pre-compiled regexes for classifying ffmpeg stderr output into retryable
// error categories. Checked in order by [RetryState.Advance]; the first
// matching pattern whose fix has not yet been applied wins.
var (
	// The forced demuxer did not match the payload, e.g. a WebM saved as .mp4.
	reFormatMismatch = regexp.MustCompile(
		`(?i)Invalid data found when processing input|` +
			`moov atom not found|` +
			`EBML header parsing failed|` +
			`could not find codec parameters`)

	reTimestampIssue = regexp.MustCompile(
		`(?i)Non-monotonous DTS|non monotonically increasing dts|` +
			`DTS .*out of order|PTS .*out of order|` +
			`pts has no value|Timestamps are unset`)

	// Not retryable: the build lacks the MP3 encoder altogether.
	reEncoderMissing = regexp.MustCompile(
		`(?i)Unknown encoder '?libmp3lame'?|Encoder libmp3lame not found`)
)

// MatchFormatMismatch reports whether stderr shows the declared input format was wrong.
func MatchFormatMismatch(stderr string) bool {
	return reFormatMismatch.MatchString(stderr)
}

// MatchTimestampIssue reports whether stderr contains a timestamp discontinuity.
func MatchTimestampIssue(stderr string) bool {
	return reTimestampIssue.MatchString(stderr)
}

// MatchEncoderMissing reports whether ffmpeg was built without libmp3lame.
func MatchEncoderMissing(stderr string) bool {
	return reEncoderMissing.MatchString(stderr)
}
