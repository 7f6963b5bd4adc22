package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Report is the --report document: one entry per attempted file plus totals.
type Report struct {
	RunID    string       `yaml:"run_id"`
	Mode     string       `yaml:"mode"`
	Path     string       `yaml:"path"`
	DryRun   bool         `yaml:"dry_run,omitempty"`
	Started  time.Time    `yaml:"started"`
	Finished time.Time    `yaml:"finished"`
	Totals   ReportTotals `yaml:"totals"`
	Files    []ReportFile `yaml:"files"`
}

type ReportTotals struct {
	Files       int   `yaml:"files"`
	Converted   int   `yaml:"converted"`
	Planned     int   `yaml:"planned,omitempty"`
	Skipped     int   `yaml:"skipped"`
	Failed      int   `yaml:"failed"`
	InputBytes  int64 `yaml:"input_bytes"`
	OutputBytes int64 `yaml:"output_bytes"`
}

type ReportFile struct {
	Source      string `yaml:"source"`
	Target      string `yaml:"target"`
	Status      Status `yaml:"status"`
	Stage       string `yaml:"stage,omitempty"`
	Error       string `yaml:"error,omitempty"`
	Note        string `yaml:"note,omitempty"`
	InputBytes  int64  `yaml:"input_bytes,omitempty"`
	OutputBytes int64  `yaml:"output_bytes,omitempty"`
	ElapsedMS   int64  `yaml:"elapsed_ms"`
}

// NewReport builds the report for a finished run.
func NewReport(mode, path string, dryRun bool, started time.Time, stats RunStats) *Report {
	r := &Report{
		RunID:    uuid.NewString(),
		Mode:     mode,
		Path:     path,
		DryRun:   dryRun,
		Started:  started,
		Finished: time.Now(),
		Totals: ReportTotals{
			Files:       stats.Total,
			Converted:   stats.Converted,
			Planned:     stats.Planned,
			Skipped:     stats.Skipped,
			Failed:      stats.Failed,
			InputBytes:  stats.TotalInputBytes,
			OutputBytes: stats.TotalOutputBytes,
		},
		Files: make([]ReportFile, 0, len(stats.Results)),
	}
	for _, res := range stats.Results {
		f := ReportFile{
			Source:      res.Job.Source,
			Target:      res.Job.Target,
			Status:      res.Status,
			Stage:       string(res.Stage),
			Note:        res.Note,
			InputBytes:  res.InputBytes,
			OutputBytes: res.OutputBytes,
			ElapsedMS:   res.Elapsed.Milliseconds(),
		}
		if res.Err != nil {
			f.Error = res.Err.Error()
		}
		r.Files = append(r.Files, f)
	}
	return r
}

// WriteFile marshals the report as YAML to path, creating parent directories.
func (r *Report) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
