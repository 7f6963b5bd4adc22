package pipeline

import (
	"context"
	"path/filepath"

	"github.com/backmassage/quickconv/internal/display"
	"github.com/backmassage/quickconv/internal/media"
)

// Run is the batch entry point. It discovers the files in dir that h
// accepts, converts each one sequentially, and returns aggregate stats.
// Cancelling ctx stops the batch before the next file.
func Run(ctx context.Context, dir string, h media.Handler, deps Deps) RunStats {
	var stats RunStats
	log := deps.Log

	files, err := Discover(dir, h)
	if err != nil {
		log.Error("File discovery failed: %v", err)
		return stats
	}

	stats.Total = len(files)
	if stats.Total == 0 {
		log.Warn("No %s files in %s (accepted: %s)", h.Kind(), dir, media.ExtensionList(h))
		return stats
	}
	log.Info("Processing %d files", stats.Total)
	if deps.DryRun {
		log.Info("Dry run: nothing will be written or trashed")
	}
	log.Blank()

	for i, path := range files {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}
		stats.Current = i + 1
		log.Info("[%d/%d] %s", stats.Current, stats.Total, filepath.Base(path))
		stats.Record(ConvertOne(ctx, path, h, deps))
		log.Blank()
	}

	logSummary(deps, &stats)
	return stats
}

// RunFile converts a single file and reports it with the same summary as a
// batch of one.
func RunFile(ctx context.Context, path string, h media.Handler, deps Deps) RunStats {
	stats := RunStats{Total: 1, Current: 1}
	deps.Log.Info("Processing %s", filepath.Base(path))
	stats.Record(ConvertOne(ctx, path, h, deps))
	deps.Log.Blank()
	logSummary(deps, &stats)
	return stats
}

func logSummary(deps Deps, stats *RunStats) {
	log := deps.Log
	log.Info("==============================")
	if deps.DryRun {
		log.Info("Done (dry run): %d would be converted, %d skipped, %d failed",
			stats.Planned, stats.Skipped, stats.Failed)
	} else {
		log.Info("Done: %d converted, %d skipped, %d failed", stats.Converted, stats.Skipped, stats.Failed)
	}
	log.Info("  Total files processed: %d", stats.Current)

	if deps.DryRun {
		log.Info("  Total space saved: n/a (dry run)")
		return
	}
	if stats.Converted == 0 {
		return
	}

	saved := stats.SpaceSaved()
	if saved >= 0 {
		log.Success("  Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(stats.TotalInputBytes),
			display.FormatBytes(stats.TotalOutputBytes))
	} else {
		log.Warn("  Total space saved: %s (overall output is larger)",
			display.FormatBytesWithSign(saved))
	}
}
