// Package config holds runtime configuration: defaults, CLI flag parsing, and
// validation. Encode settings default to the fixed targets of the converter
// (MP3 320k, JPEG quality 99, sRGB).
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// --- Enum types for validated string fields ---

// Mode selects the media kind and whether a single file or a folder is converted.
type Mode string

const (
	ModeImageSingle Mode = "image"  // One image file.
	ModeImageBatch  Mode = "images" // Every image directly inside a folder.
	ModeAudioSingle Mode = "audio"  // One audio file.
	ModeAudioBatch  Mode = "audios" // Every audio file directly inside a folder.
)

// ParseMode maps a positional mode argument (or one of its aliases) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "image-single":
		return ModeImageSingle, nil
	case "images", "image-batch":
		return ModeImageBatch, nil
	case "audio", "audio-single":
		return ModeAudioSingle, nil
	case "audios", "audio-batch":
		return ModeAudioBatch, nil
	}
	return "", fmt.Errorf("invalid mode %q (use image, images, audio or audios)", s)
}

// IsBatch reports whether the mode takes a folder rather than a single file.
func (m Mode) IsBatch() bool {
	return m == ModeImageBatch || m == ModeAudioBatch
}

// IsAudio reports whether the mode converts audio.
func (m Mode) IsAudio() bool {
	return m == ModeAudioSingle || m == ModeAudioBatch
}

// Noun is the human label used in picker titles and log lines.
func (m Mode) Noun() string {
	switch m {
	case ModeImageSingle:
		return "image"
	case ModeImageBatch:
		return "images"
	case ModeAudioSingle:
		return "audio file"
	case ModeAudioBatch:
		return "audio files"
	}
	return string(m)
}

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// ColorProfile is the color space image outputs are converted into and
// tagged with.
type ColorProfile string

const (
	ProfileSRGB      ColorProfile = "sRGB"       // Default.
	ProfileDisplayP3 ColorProfile = "Display P3" // Wide gamut, as shot by recent phones.
)

// ParseColorProfile maps --color-profile input to a ColorProfile. Case,
// spaces, dashes and underscores are ignored.
func ParseColorProfile(s string) (ColorProfile, error) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
	switch key {
	case "srgb":
		return ProfileSRGB, nil
	case "displayp3", "p3":
		return ProfileDisplayP3, nil
	}
	return "", fmt.Errorf("invalid color profile %q (use srgb or display-p3)", s)
}

// Quality bounds accepted by the JPEG encoder.
const (
	QualityMin = 1
	QualityMax = 100
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by [ParseFlags] before being passed (by pointer) to packages
// that need it. Handlers take immutable option values derived from it via
// [Config.AudioOptions] and [Config.ImageOptions].
type Config struct {
	// Mode and target (set from positional args). Path may be empty, in
	// which case the picker dialog supplies it.
	Mode Mode
	Path string

	// Audio encoding.
	AudioBitrate string // Default: "320k". Overridden by --bitrate.
	AudioCodec   string // Fixed: "libmp3lame".

	// Image encoding.
	ImageQuality      int          // Default: 99. Overridden by --quality.
	ImageColorProfile ColorProfile // Default: sRGB. Overridden by --color-profile.
	KeepEXIF          bool         // Default: true. Cleared by --no-exif.

	// Behavior flags.
	DryRun        bool
	SkipExisting  bool   // Default: true. Cleared by --force.
	KeepOriginals bool   // Do not move sources to the trash.
	TrashDir      string // Optional trash root override.
	StrictMode    bool   // Disable ffmpeg retry fallbacks.
	ReportFile    string // Optional YAML report path.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	CheckOnly bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with the converter's fixed targets. Used as
// the base before [ParseFlags] applies CLI overrides.
func DefaultConfig() Config {
	return Config{
		AudioBitrate:      "320k",
		AudioCodec:        "libmp3lame",
		ImageQuality:      99,
		ImageColorProfile: ProfileSRGB,
		KeepEXIF:          true,
		DryRun:            false,
		SkipExisting:      true,
		KeepOriginals:     false,
		StrictMode:        false,
		Verbose:           false,
		ColorMode:         ColorAuto,
		CheckOnly:         false,
	}
}

// AudioOptions is the immutable encode configuration for the audio handler.
type AudioOptions struct {
	Codec   string
	Bitrate string
	Strict  bool
	Verbose bool
}

// ImageOptions is the immutable encode configuration for the image handler.
type ImageOptions struct {
	Quality      int
	ColorProfile ColorProfile
	KeepEXIF     bool
}

// AudioOptions snapshots the audio encode settings.
func (c *Config) AudioOptions() AudioOptions {
	return AudioOptions{
		Codec:   c.AudioCodec,
		Bitrate: c.AudioBitrate,
		Strict:  c.StrictMode,
		Verbose: c.Verbose,
	}
}

// ImageOptions snapshots the image encode settings.
func (c *Config) ImageOptions() ImageOptions {
	return ImageOptions{
		Quality:      c.ImageQuality,
		ColorProfile: c.ImageColorProfile,
		KeepEXIF:     c.KeepEXIF,
	}
}

// NormalizePathArg strips trailing slashes from a path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizePathArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks the mode and encode settings. The bitrate is canonicalized
// in place. A mode is not required in CheckOnly mode.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	normalizedBitrate, err := normalizeAudioBitrate(c.AudioBitrate)
	if err != nil {
		return err
	}
	c.AudioBitrate = normalizedBitrate

	if c.ImageQuality < QualityMin || c.ImageQuality > QualityMax {
		return fmt.Errorf("invalid JPEG quality %d (use %d-%d)", c.ImageQuality, QualityMin, QualityMax)
	}

	switch c.ImageColorProfile {
	case ProfileSRGB, ProfileDisplayP3:
		// valid
	default:
		return fmt.Errorf("invalid color profile %q (use srgb or display-p3)", c.ImageColorProfile)
	}

	if c.CheckOnly {
		return nil
	}
	switch c.Mode {
	case ModeImageSingle, ModeImageBatch, ModeAudioSingle, ModeAudioBatch:
		// valid
	case "":
		return errors.New("need a mode (image, images, audio or audios)")
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	return nil
}

// normalizeAudioBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "320", "320k", "320K", "320kbps". Output is "<n>k".
func normalizeAudioBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("audio bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid audio bitrate %q (use positive Kbps value, e.g. 320k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}
