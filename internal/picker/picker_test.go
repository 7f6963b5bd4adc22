package picker

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDialog installs a shell script as the only dialog program on PATH.
// The script records its arguments to args.txt next to it.
func fakeDialog(t *testing.T, name, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	script := "#!/bin/sh\nfor a; do echo \"$a\"; done > \"" + filepath.Join(dir, "args.txt") + "\"\n" + body
	require.NoError(t, os.WriteFile(p, []byte(script), 0o755))

	old := lookPath
	lookPath = func(file string) (string, error) {
		if file == name {
			return p, nil
		}
		return "", exec.ErrNotFound
	}
	t.Cleanup(func() { lookPath = old })
	return filepath.Join(dir, "args.txt")
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestPick_ZenityFile(t *testing.T) {
	argsFile := fakeDialog(t, "zenity", "echo /music/a.m4a\n")
	got, err := Pick(context.Background(), Request{
		Title:      "Select an audio file",
		Extensions: []string{"m4a", "webm"},
		StartDir:   "/music",
	})
	require.NoError(t, err)
	assert.Equal(t, "/music/a.m4a", got)

	args := readArgs(t, argsFile)
	assert.Equal(t, []string{
		"--file-selection", "--title", "Select an audio file",
		"--filename", "/music/",
		"--file-filter", "Supported files | *.m4a *.M4A *.webm *.WEBM",
	}, args)
}

func TestPick_ZenityDirectory(t *testing.T) {
	argsFile := fakeDialog(t, "zenity", "echo /photos\n")
	got, err := Pick(context.Background(), Request{Title: "Select a folder", Directory: true, StartDir: "/"})
	require.NoError(t, err)
	assert.Equal(t, "/photos", got)
	assert.Contains(t, readArgs(t, argsFile), "--directory")
}

func TestPick_KDialogFallback(t *testing.T) {
	argsFile := fakeDialog(t, "kdialog", "echo /photos\n")
	got, err := Pick(context.Background(), Request{Title: "Pick", Directory: true, StartDir: "/home"})
	require.NoError(t, err)
	assert.Equal(t, "/photos", got)
	assert.Equal(t, []string{"--title", "Pick", "--getexistingdirectory", "/home"}, readArgs(t, argsFile))
}

func TestPick_KDialogFileFilter(t *testing.T) {
	argsFile := fakeDialog(t, "kdialog", "echo /p/x.png\n")
	_, err := Pick(context.Background(), Request{Title: "Pick", Extensions: []string{"png"}, StartDir: "/p"})
	require.NoError(t, err)
	args := readArgs(t, argsFile)
	assert.Equal(t, "*.png *.PNG|Supported files", args[len(args)-1])
}

func TestPick_Cancelled(t *testing.T) {
	fakeDialog(t, "zenity", "exit 1\n")
	_, err := Pick(context.Background(), Request{Title: "x"})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestPick_DialogError(t *testing.T) {
	fakeDialog(t, "zenity", "echo 'cannot open display' >&2\nexit 5\n")
	_, err := Pick(context.Background(), Request{Title: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCancelled))
	assert.Contains(t, err.Error(), "cannot open display")
}

func TestAvailable_NoDialog(t *testing.T) {
	old := lookPath
	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	t.Cleanup(func() { lookPath = old })

	_, err := Available()
	assert.ErrorIs(t, err, ErrNoDialog)
	_, err = Pick(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoDialog)
}
