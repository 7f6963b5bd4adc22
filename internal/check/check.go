// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation (CheckDeps) for ffmpeg, ffprobe, the MP3 encoder,
// the image codecs, the trash and the picker dialog.
package check

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"os/exec"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/backmassage/quickconv/internal/config"
	"github.com/backmassage/quickconv/internal/ffmpeg"
	"github.com/backmassage/quickconv/internal/picker"
	"github.com/backmassage/quickconv/internal/probe"
	"github.com/backmassage/quickconv/internal/trash"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrFfmpegNotFound    = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound   = errors.New("ffprobe not found on PATH")
	ErrMP3EncoderMissing = errors.New("ffmpeg cannot encode MP3 (libmp3lame missing)")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// RunCheck runs the --check flow and reports whether everything a
// conversion needs is available. A missing picker dialog is only a warning
// since paths can be given on the command line.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	ok := true
	ok = checkTool(log, ffmpeg.Command, "ffmpeg") && ok
	ok = checkTool(log, probe.Command, "ffprobe") && ok
	ok = checkMP3(log, cfg) && ok
	ok = checkImageCodecs(log, cfg) && ok
	ok = checkTrash(log, cfg) && ok
	checkPicker(log)
	return ok
}

// checkTool verifies bin is on PATH and logs its version string.
func checkTool(log Logger, bin, label string) bool {
	path, err := exec.LookPath(bin)
	if err != nil {
		log.Error("%s not found", label)
		return false
	}
	out, err := exec.Command(path, "-version").Output()
	if err != nil {
		log.Warn("%s found but -version failed: %v", label, err)
		return true
	}
	log.Success("%s: %s", label, firstLine(string(out)))
	log.Debug("  %s", path)
	return true
}

// checkMP3 runs a minimal encode with the configured codec and bitrate.
func checkMP3(log Logger, cfg *config.Config) bool {
	log.Info("Testing MP3 encoder (%s @ %s)...", cfg.AudioCodec, cfg.AudioBitrate)
	if runSilent(ffmpeg.Command, mp3TestArgs(cfg)...) {
		log.Success("%s works", cfg.AudioCodec)
		return true
	}
	log.Error("%s test encode failed", cfg.AudioCodec)
	return false
}

// checkImageCodecs round-trips a tiny image through the JPEG encoder and the
// WebP codec. HEIC decoding is compiled in and needs no runtime check.
func checkImageCodecs(log Logger, cfg *config.Config) bool {
	log.Info("Testing image codecs...")
	img := imaging.New(4, 4, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	var jpg bytes.Buffer
	if err := imaging.Encode(&jpg, img, imaging.JPEG, imaging.JPEGQuality(cfg.ImageQuality)); err != nil {
		log.Error("JPEG encode failed: %v", err)
		return false
	}
	if _, err := imaging.Decode(&jpg); err != nil {
		log.Error("JPEG decode failed: %v", err)
		return false
	}

	var wp bytes.Buffer
	if err := webp.Encode(&wp, img, &webp.Options{Lossless: true}); err != nil {
		log.Error("WebP encode failed: %v", err)
		return false
	}
	back, err := webp.Decode(&wp)
	if err != nil || back.Bounds() != image.Rect(0, 0, 4, 4) {
		log.Error("WebP decode failed: %v", err)
		return false
	}

	log.Success("JPEG (quality %d), PNG, GIF, WebP and HEIC decoders available", cfg.ImageQuality)
	return true
}

// checkTrash confirms the trash root exists or can be created and accepts files.
func checkTrash(log Logger, cfg *config.Config) bool {
	if cfg.KeepOriginals {
		log.Info("Trash: not used (--keep-originals)")
		return true
	}
	t, err := trash.New(cfg.TrashDir)
	if err != nil {
		log.Error("Trash: %v", err)
		return false
	}
	if err := writable(t.Root()); err != nil {
		log.Error("Trash %s not writable: %v", t.Root(), err)
		return false
	}
	log.Success("Trash: %s", t.Root())
	return true
}

func checkPicker(log Logger) {
	bin, err := picker.Available()
	if err != nil {
		log.Warn("Picker: %v; pass paths on the command line", err)
		return
	}
	log.Success("Picker: %s", bin)
}

// CheckDeps is the pre-pipeline validation for audio modes: ffmpeg and
// ffprobe must be on PATH and the MP3 encoder must pass a short test encode.
// Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath(ffmpeg.Command); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath(probe.Command); err != nil {
		return ErrFfprobeNotFound
	}
	if !runSilent(ffmpeg.Command, mp3TestArgs(cfg)...) {
		return ErrMP3EncoderMissing
	}
	return nil
}

// --- internal helpers ---

// mp3TestArgs returns the ffmpeg arguments for a minimal MP3 test encode.
// Shared by checkMP3 and CheckDeps to avoid duplicating the argument list.
func mp3TestArgs(cfg *config.Config) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", cfg.AudioCodec, "-b:a", cfg.AudioBitrate,
		"-f", "null", "-",
	}
}

func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".quickconv-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		return s[:idx]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
