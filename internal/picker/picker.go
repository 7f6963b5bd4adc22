// Package picker asks the user for a file or folder through a native dialog
// when no path was given on the command line. zenity is preferred, kdialog
// is the fallback.
package picker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrCancelled is returned when the user closes the dialog without choosing.
	ErrCancelled = errors.New("selection cancelled")
	// ErrNoDialog is returned when neither zenity nor kdialog is on PATH.
	ErrNoDialog = errors.New("no dialog program found (install zenity or kdialog)")
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// Request describes what to ask for.
type Request struct {
	Title      string
	Directory  bool     // Pick a folder instead of a file.
	Extensions []string // File filter, lowercase without dot. Ignored for folders.
	StartDir   string   // Defaults to the working directory.
}

// Available returns the dialog program that Pick would run.
func Available() (string, error) {
	for _, name := range []string{"zenity", "kdialog"} {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrNoDialog
}

// Pick opens the dialog and returns the chosen path.
func Pick(ctx context.Context, req Request) (string, error) {
	bin, err := Available()
	if err != nil {
		return "", err
	}
	if req.StartDir == "" {
		if wd, err := os.Getwd(); err == nil {
			req.StartDir = wd
		}
	}

	var args []string
	if isKDialog(bin) {
		args = kdialogArgs(req)
	} else {
		args = zenityArgs(req)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	choice := strings.TrimRight(stdout.String(), "\r\n")
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 && choice == "" {
			return "", ErrCancelled
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", bin, runErr, msg)
		}
		return "", fmt.Errorf("%s: %w", bin, runErr)
	}
	if choice == "" {
		return "", ErrCancelled
	}
	return choice, nil
}

func isKDialog(bin string) bool {
	return strings.HasPrefix(baseName(bin), "kdialog")
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

func zenityArgs(req Request) []string {
	args := []string{"--file-selection", "--title", req.Title}
	if req.StartDir != "" {
		args = append(args, "--filename", strings.TrimSuffix(req.StartDir, "/")+"/")
	}
	if req.Directory {
		return append(args, "--directory")
	}
	if len(req.Extensions) > 0 {
		args = append(args, "--file-filter", "Supported files | "+globs(req.Extensions))
	}
	return args
}

func kdialogArgs(req Request) []string {
	args := []string{"--title", req.Title}
	if req.Directory {
		return append(args, "--getexistingdirectory", req.StartDir)
	}
	args = append(args, "--getopenfilename", req.StartDir)
	if len(req.Extensions) > 0 {
		args = append(args, globs(req.Extensions)+"|Supported files")
	}
	return args
}

// globs renders "*.jpg *.JPG *.png *.PNG": GTK and Qt filters are case-sensitive.
func globs(exts []string) string {
	parts := make([]string, 0, 2*len(exts))
	for _, e := range exts {
		parts = append(parts, "*."+strings.ToLower(e), "*."+strings.ToUpper(e))
	}
	return strings.Join(parts, " ")
}
