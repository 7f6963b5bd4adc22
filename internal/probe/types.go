package probe

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
	Tags       map[string]string
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index         int
	Codec         string
	Channels      int
	ChannelLayout string
	SampleRate    int
	BitRate       int64
	IsDefault     bool
}

// Result is the parsed output of one ffprobe call.
// VideoStreams counts real video streams; cover art (attached_pic) is counted
// separately since the MP3 output drops both.
type Result struct {
	Format       FormatInfo
	AudioStreams []AudioStream
	VideoStreams int
	CoverArt     int
}

// HasAudio reports whether at least one audio stream was found.
func (r *Result) HasAudio() bool {
	return len(r.AudioStreams) > 0
}

// PrimaryAudio returns the default audio stream, falling back to the first.
// Nil when there is no audio.
func (r *Result) PrimaryAudio() *AudioStream {
	for i := range r.AudioStreams {
		if r.AudioStreams[i].IsDefault {
			return &r.AudioStreams[i]
		}
	}
	if len(r.AudioStreams) > 0 {
		return &r.AudioStreams[0]
	}
	return nil
}

// AudioBitRate returns the primary audio stream bitrate in bits/sec, falling
// back to the container bitrate when the stream does not report one.
func (r *Result) AudioBitRate() int64 {
	if a := r.PrimaryAudio(); a != nil && a.BitRate > 0 {
		return a.BitRate
	}
	return r.Format.BitRate
}
