// Package audioconv implements the audio media handler: m4a, webm, mov and
// mp4 sources are probed with ffprobe and re-encoded to constant-bitrate MP3
// with ffmpeg.
package audioconv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/backmassage/quickconv/internal/config"
	"github.com/backmassage/quickconv/internal/display"
	"github.com/backmassage/quickconv/internal/ffmpeg"
	"github.com/backmassage/quickconv/internal/media"
	"github.com/backmassage/quickconv/internal/probe"
	"github.com/dhowden/tag"
)

// ErrNoAudio is returned by Decode for sources without an audio stream.
var ErrNoAudio = errors.New("no audio stream")

// demuxers maps accepted extensions to the ffmpeg input format declared for
// them. mp4, m4a and mov share the QuickTime demuxer.
var demuxers = map[string]string{
	"m4a":  "mov",
	"mp4":  "mov",
	"mov":  "mov",
	"webm": "webm",
}

// Logger is the subset of the logger the handler reports retries through.
type Logger interface {
	Warn(string, ...interface{})
	Debug(string, ...interface{})
}

// Handler converts audio sources to MP3. The zero value is not usable; build
// it with [New].
type Handler struct {
	opts config.AudioOptions
	log  Logger
}

// New returns an audio handler with fixed encode options.
func New(opts config.AudioOptions, log Logger) *Handler {
	return &Handler{opts: opts, log: log}
}

func (h *Handler) Kind() media.Kind { return media.KindAudio }

func (h *Handler) Extensions() []string { return []string{"m4a", "webm", "mov", "mp4"} }

func (h *Handler) OutputExt() string { return "mp3" }

// Source is the decoded form of an audio file: the probe result plus
// whatever tags could be read.
type Source struct {
	Path        string
	InputFormat string // Empty once the declared format was rejected.
	Probe       *probe.Result
	Title       string
	Artist      string
}

// Describe summarizes the primary audio stream and tags.
func (s *Source) Describe() string {
	var parts []string
	if a := s.Probe.PrimaryAudio(); a != nil {
		parts = append(parts, fmt.Sprintf("%s %dch %d Hz %s",
			a.Codec, a.Channels, a.SampleRate,
			display.FormatBitrateLabel(s.Probe.AudioBitRate()/1000)))
	}
	switch {
	case s.Artist != "" && s.Title != "":
		parts = append(parts, s.Artist+" - "+s.Title)
	case s.Title != "":
		parts = append(parts, s.Title)
	}
	return strings.Join(parts, " | ")
}

// Decode probes path with the demuxer declared by its extension. Outside
// strict mode a rejected declaration is retried with auto-detection, so a
// mislabelled container still converts.
func (h *Handler) Decode(ctx context.Context, path string) (media.Decoded, error) {
	format, ok := demuxers[media.Ext(path)]
	if !ok {
		return nil, media.DecodeError(path, media.ErrUnsupportedExt)
	}

	pr, err := probe.Probe(ctx, path, format)
	if err != nil && !h.opts.Strict && ctx.Err() == nil {
		h.debug("Declared format %s rejected, probing with auto-detect", format)
		format = ""
		pr, err = probe.Probe(ctx, path, "")
	}
	if err != nil {
		return nil, media.DecodeError(path, err)
	}
	if !pr.HasAudio() {
		return nil, media.DecodeError(path, ErrNoAudio)
	}

	src := &Source{Path: path, InputFormat: format, Probe: pr}
	src.Title, src.Artist = readTags(path)
	return src, nil
}

// Encode writes the MP3 to dst, applying one ffmpeg fix per failed attempt
// unless strict mode is on.
func (h *Handler) Encode(ctx context.Context, d media.Decoded, dst string) error {
	src, ok := d.(*Source)
	if !ok {
		return media.EncodeError(dst, fmt.Errorf("audio handler cannot encode %T", d))
	}

	job := ffmpeg.Job{
		InputPath:   src.Path,
		InputFormat: src.InputFormat,
		OutputPath:  dst,
	}
	if a := src.Probe.PrimaryAudio(); a != nil {
		job.StreamMap = fmt.Sprintf("0:%d", a.Index)
	}

	rs := ffmpeg.NewRetryState()
	if src.InputFormat == "" {
		rs.ForceFormat = false
	}
	for {
		res := ffmpeg.Execute(ctx, h.opts, job, rs)
		if res.Err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return media.EncodeError(dst, ctx.Err())
		}
		if h.opts.Strict {
			return media.EncodeError(dst, stderrError(res))
		}

		action := rs.Advance(res.Stderr)
		if action == ffmpeg.RetryNone {
			return media.EncodeError(dst, stderrError(res))
		}
		if h.log != nil {
			h.log.Warn("Retry %d: %s", rs.Attempt, action)
		}
		os.Remove(dst)
	}
}

func (h *Handler) debug(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Debug(format, args...)
	}
}

// stderrError folds the tail of ffmpeg's stderr into the error so the
// per-file failure line says why.
func stderrError(res ffmpeg.ExecResult) error {
	msg := lastLine(res.Stderr)
	if msg == "" {
		return fmt.Errorf("ffmpeg: %w", res.Err)
	}
	return fmt.Errorf("ffmpeg: %w: %s", res.Err, msg)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// readTags returns title and artist when the container carries tags that
// dhowden/tag understands (MP4 family). WebM and untagged files yield "".
func readTags(path string) (title, artist string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", ""
	}
	return strings.TrimSpace(m.Title()), strings.TrimSpace(m.Artist())
}
