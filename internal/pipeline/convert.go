package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/quickconv/internal/config"
	"github.com/backmassage/quickconv/internal/display"
	"github.com/backmassage/quickconv/internal/logging"
	"github.com/backmassage/quickconv/internal/media"
	"github.com/backmassage/quickconv/internal/trash"
)

// Status is the outcome of one file.
type Status string

const (
	StatusConverted Status = "converted"
	StatusPlanned   Status = "planned" // Dry run: would have been converted.
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result is the per-file outcome. Stage and Err are set only on failure.
type Result struct {
	Job         media.Job
	Status      Status
	Stage       media.Stage
	Err         error
	Note        string // Reason for a skip, or what a dry run would have done.
	InputBytes  int64
	OutputBytes int64
	Elapsed     time.Duration
}

// Deps carries everything ConvertOne needs besides the handler.
type Deps struct {
	Log           *logging.Logger
	Trasher       trash.Trasher
	DryRun        bool
	Overwrite     bool // Replace existing targets instead of skipping.
	KeepOriginals bool
}

// NewDeps builds Deps from the parsed configuration. With --keep-originals
// the given trasher is replaced by [trash.Noop].
func NewDeps(cfg *config.Config, log *logging.Logger, t trash.Trasher) Deps {
	if cfg.KeepOriginals || t == nil {
		t = trash.Noop{}
	}
	return Deps{
		Log:           log,
		Trasher:       t,
		DryRun:        cfg.DryRun,
		Overwrite:     !cfg.SkipExisting,
		KeepOriginals: cfg.KeepOriginals,
	}
}

// ErrNotRegular is returned for paths that exist but are not regular files.
var ErrNotRegular = errors.New("not a regular file")

// ConvertOne converts path with h: validate, decode, encode to a temporary
// file next to the target, rename it into place, then trash the source.
// The source is left untouched by any failure before the commit.
func ConvertOne(ctx context.Context, path string, h media.Handler, deps Deps) Result {
	start := time.Now()
	job := media.NewJob(h, path)
	res := Result{Job: job}
	log := deps.Log
	name := filepath.Base(path)

	fail := func(err error) Result {
		res.Status = StatusFailed
		res.Err = err
		res.Stage = media.StageOf(err)
		res.Elapsed = time.Since(start)
		log.Error("Could not export %s: %v", name, err)
		return res
	}

	// --- Validate ---
	srcInfo, err := os.Stat(path)
	if err != nil {
		return fail(&media.StageError{Stage: media.StageValidate, Path: path, Err: err})
	}
	if !srcInfo.Mode().IsRegular() {
		return fail(&media.StageError{Stage: media.StageValidate, Path: path, Err: ErrNotRegular})
	}
	if !media.Accepts(h, path) {
		return fail(&media.StageError{Stage: media.StageValidate, Path: path,
			Err: fmt.Errorf("%w: accepted %s", media.ErrUnsupportedExt, media.ExtensionList(h))})
	}
	res.InputBytes = srcInfo.Size()

	// --- Decode ---
	d, err := h.Decode(ctx, path)
	if err != nil {
		return fail(err)
	}
	if desc := d.Describe(); desc != "" {
		log.Debug("  %s", desc)
	}

	// --- Target ---
	inPlace := job.InPlace()
	if tgtInfo, err := os.Stat(job.Target); err == nil {
		switch {
		case inPlace || os.SameFile(srcInfo, tgtInfo):
			// photo.jpg -> photo.jpg, or photo.JPG on a case-insensitive filesystem.
			inPlace = true
		case !deps.Overwrite:
			res.Status = StatusSkipped
			res.Note = "target exists"
			res.Elapsed = time.Since(start)
			log.Warn("Skip (exists): %s", filepath.Base(job.Target))
			return res
		}
	}
	if inPlace && deps.KeepOriginals {
		res.Status = StatusSkipped
		res.Note = "output would replace the original"
		res.Elapsed = time.Since(start)
		log.Warn("Skip (would replace original with --keep-originals): %s", name)
		return res
	}

	// --- Dry run ---
	if deps.DryRun {
		res.Status = StatusPlanned
		res.Note = "dry run"
		res.Elapsed = time.Since(start)
		log.Success("[DRY] Would export %s to %s", name, filepath.Base(job.Target))
		return res
	}

	// --- Encode ---
	tmp, err := tempPath(job.Target)
	if err != nil {
		return fail(media.EncodeError(path, err))
	}
	if err := h.Encode(ctx, d, tmp); err != nil {
		os.Remove(tmp)
		return fail(err)
	}
	outInfo, err := os.Stat(tmp)
	if err != nil {
		os.Remove(tmp)
		return fail(media.EncodeError(path, err))
	}
	if outInfo.Size() == 0 {
		os.Remove(tmp)
		return fail(media.EncodeError(path, errors.New("encoder produced an empty file")))
	}
	res.OutputBytes = outInfo.Size()
	// The placeholder was created 0600; the output takes the source's mode.
	if err := os.Chmod(tmp, srcInfo.Mode().Perm()); err != nil {
		os.Remove(tmp)
		return fail(media.CommitError(job.Target, err))
	}

	// --- Commit + trash ---
	if inPlace {
		// The target is the source: it has to leave before the output can
		// take its name.
		if err := deps.Trasher.Trash(path); err != nil {
			os.Remove(tmp)
			return fail(media.TrashError(path, err))
		}
		if err := os.Rename(tmp, job.Target); err != nil {
			// Source already trashed; keep the temp so the output is not lost.
			return fail(media.CommitError(job.Target, fmt.Errorf("%w (output left at %s)", err, tmp)))
		}
	} else {
		if err := os.Rename(tmp, job.Target); err != nil {
			os.Remove(tmp)
			return fail(media.CommitError(job.Target, err))
		}
		if err := deps.Trasher.Trash(path); err != nil {
			// Output is complete; only the cleanup failed.
			return fail(media.TrashError(path, err))
		}
	}

	res.Status = StatusConverted
	res.Elapsed = time.Since(start)
	log.Success("Exported %s to %s (%s, %s of original)",
		name, filepath.Base(job.Target),
		display.FormatElapsed(res.Elapsed),
		display.FormatRatio(res.InputBytes, res.OutputBytes))
	return res
}

// tempPath reserves ".<stem>.quickconv-*.<ext>" in the target's directory so
// the final rename stays on one filesystem.
func tempPath(target string) (string, error) {
	dir := filepath.Dir(target)
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(filepath.Base(target), ext)
	f, err := os.CreateTemp(dir, "."+stem+tempMarker+"*"+ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
