package ffmpeg

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone          RetryAction = iota
	RetryAutoDetect                // Drop the forced input format; let ffmpeg probe.
	RetryFixTimestamps             // Enable +genpts+discardcorrupt.
)

// String returns the log label for the action.
func (a RetryAction) String() string {
	switch a {
	case RetryAutoDetect:
		return "auto-detect input format"
	case RetryFixTimestamps:
		return "fix timestamps"
	}
	return "none"
}

const maxAttempts = 3

// RetryState tracks which fallback fixes have been applied across ffmpeg
// attempts for a single file.
type RetryState struct {
	Attempt     int
	MaxAttempts int

	ForceFormat  bool
	TimestampFix bool
}

// NewRetryState starts with the declared input format forced and no
// timestamp fix, matching a first-attempt encode.
func NewRetryState() *RetryState {
	return &RetryState{
		MaxAttempts: maxAttempts,
		ForceFormat: true,
	}
}

// Advance inspects stderr from a failed ffmpeg run, finds the first matching
// error pattern whose fix has not yet been applied, applies that fix, and
// returns the action taken. Returns RetryNone when no fixable pattern matches,
// the failure is not fixable, or the attempt limit is reached.
//
// Pattern evaluation order: format mismatch → timestamp.
func (s *RetryState) Advance(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}
	if MatchEncoderMissing(stderr) {
		return RetryNone
	}

	if s.ForceFormat && MatchFormatMismatch(stderr) {
		s.ForceFormat = false
		return RetryAutoDetect
	}
	if !s.TimestampFix && MatchTimestampIssue(stderr) {
		s.TimestampFix = true
		return RetryFixTimestamps
	}
	return RetryNone
}
