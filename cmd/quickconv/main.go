// Command quickconv converts audio files to MP3 and images to JPEG, one file
// or a whole folder at a time, and moves the originals to the trash.
//
// It parses flags, validates configuration and the input path (asking for one
// through a picker dialog when none is given), and either runs system
// diagnostics (--check) or the conversion pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/backmassage/quickconv/internal/audioconv"
	"github.com/backmassage/quickconv/internal/check"
	"github.com/backmassage/quickconv/internal/config"
	"github.com/backmassage/quickconv/internal/display"
	"github.com/backmassage/quickconv/internal/imageconv"
	"github.com/backmassage/quickconv/internal/logging"
	"github.com/backmassage/quickconv/internal/media"
	"github.com/backmassage/quickconv/internal/picker"
	"github.com/backmassage/quickconv/internal/pipeline"
	"github.com/backmassage/quickconv/internal/trash"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// Exit codes.
const (
	exitOK          = 0
	exitStartup     = 1
	exitCheckFailed = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "quickconv: %v\n", err)
		return exitStartup
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "quickconv: %v\n", err)
		return exitStartup
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quickconv: %v\n", err)
		return exitStartup
	}
	defer log.Close()

	// Phase 2: Logger available; all output goes through log from here on.
	display.PrintBanner(os.Stdout)

	if cfg.CheckOnly {
		if !check.RunCheck(&cfg, log) {
			return exitCheckFailed
		}
		return exitOK
	}

	// Signal handling: cancel the context on SIGINT/SIGTERM so the batch
	// stops between files and the running ffmpeg is killed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, stopping after the current file…")
		cancel()
	}()

	handler := newHandler(&cfg, log)

	// Phase 3: Resolve the input path from argv or the picker.
	if cfg.Path == "" {
		path, err := pickPath(ctx, cfg.Mode, handler)
		if errors.Is(err, picker.ErrCancelled) {
			return exitOK
		}
		if err != nil {
			log.Error("%v", err)
			return exitStartup
		}
		cfg.Path = path
	}
	if err := checkPathKind(cfg.Mode, cfg.Path); err != nil {
		log.Error("%v", err)
		return exitStartup
	}

	log.Info("=== quickconv v%s (%s) ===", version, commit)
	log.Info("Mode: %s", cfg.Mode)
	log.Info("In:   %s", cfg.Path)
	if cfg.Mode.IsAudio() {
		log.Info("Out:  MP3 %s (%s)", cfg.AudioBitrate, cfg.AudioCodec)
	} else {
		log.Info("Out:  JPEG quality %d, %s", cfg.ImageQuality, cfg.ImageColorProfile)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written or trashed")
	}
	log.Blank()

	// Fail fast if ffmpeg/ffprobe or the MP3 encoder are unavailable.
	if cfg.Mode.IsAudio() {
		if err := check.CheckDeps(&cfg); err != nil {
			log.Error("%v", err)
			return exitStartup
		}
	}

	var t trash.Trasher = trash.Noop{}
	if !cfg.KeepOriginals && !cfg.DryRun {
		if t, err = trash.New(cfg.TrashDir); err != nil {
			log.Error("%v (use --keep-originals or --trash-dir)", err)
			return exitStartup
		}
		log.Debug("Trash: %s", t.Root())
	}
	deps := pipeline.NewDeps(&cfg, log, t)

	// Phase 4: Convert.
	started := time.Now()
	var stats pipeline.RunStats
	if cfg.Mode.IsBatch() {
		stats = pipeline.Run(ctx, cfg.Path, handler, deps)
	} else {
		stats = pipeline.RunFile(ctx, cfg.Path, handler, deps)
	}

	if cfg.ReportFile != "" {
		report := pipeline.NewReport(string(cfg.Mode), cfg.Path, cfg.DryRun, started, stats)
		if err := report.WriteFile(cfg.ReportFile); err != nil {
			log.Error("%v", err)
		} else {
			log.Info("Report written to %s", cfg.ReportFile)
		}
	}

	// Per-file failures are reported above; a completed batch exits 0.
	return exitOK
}

// newHandler returns the media handler for the configured mode.
func newHandler(cfg *config.Config, log *logging.Logger) media.Handler {
	if cfg.Mode.IsAudio() {
		return audioconv.New(cfg.AudioOptions(), log)
	}
	return imageconv.New(cfg.ImageOptions())
}

// pickPath asks for a file or folder matching the mode.
func pickPath(ctx context.Context, mode config.Mode, h media.Handler) (string, error) {
	req := picker.Request{
		Title:     "Select " + mode.Noun(),
		Directory: mode.IsBatch(),
	}
	if req.Directory {
		req.Title = "Select a folder of " + mode.Noun()
	} else {
		req.Extensions = h.Extensions()
	}
	path, err := picker.Pick(ctx, req)
	if err != nil {
		return "", err
	}
	return config.NormalizePathArg(path), nil
}

// checkPathKind requires a folder for batch modes and a file otherwise.
func checkPathKind(mode config.Mode, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input not found: %s", path)
	}
	abs, _ := filepath.Abs(path)
	switch {
	case mode.IsBatch() && !fi.IsDir():
		return fmt.Errorf("%s mode needs a folder, got a file: %s", mode, abs)
	case !mode.IsBatch() && fi.IsDir():
		return fmt.Errorf("%s mode needs a file, got a folder: %s (use %ss)", mode, abs, mode)
	}
	return nil
}
