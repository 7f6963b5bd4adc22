// Package trash moves converted sources into the desktop trash so a
// conversion can be undone from the file manager.
//
// On Linux and the BSDs the FreeDesktop.org Trash layout is used
// ($XDG_DATA_HOME/Trash/{files,info}). On macOS files are moved into
// ~/.Trash. An explicit root directory always uses the FreeDesktop layout,
// whatever the platform.
package trash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// ErrUnsupported is returned by [New] on platforms without a known trash.
var ErrUnsupported = errors.New("no system trash on this platform")

// Trasher moves a file somewhere it can be recovered from.
type Trasher interface {
	Trash(path string) error
	// Root is the directory files are moved under; "" when nothing is moved.
	Root() string
}

// New returns the trasher for this platform, or a FreeDesktop trasher rooted
// at dir when dir is non-empty.
func New(dir string) (Trasher, error) {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("trash dir: %w", err)
		}
		return NewFreeDesktop(abs), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate trash: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return NewFolder(filepath.Join(home, ".Trash")), nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return NewFreeDesktop(xdgTrashDir(home, os.Getenv)), nil
	}
	return nil, fmt.Errorf("%w (%s)", ErrUnsupported, runtime.GOOS)
}

// xdgTrashDir returns the home trash: $XDG_DATA_HOME/Trash, falling back to
// ~/.local/share/Trash when the variable is unset or relative.
func xdgTrashDir(home string, getenv func(string) string) string {
	if d := getenv("XDG_DATA_HOME"); d != "" && filepath.IsAbs(d) {
		return filepath.Join(d, "Trash")
	}
	return filepath.Join(home, ".local", "share", "Trash")
}

// Noop leaves sources in place (--keep-originals and dry runs).
type Noop struct{}

func (Noop) Trash(string) error { return nil }
func (Noop) Root() string       { return "" }

// candidateName returns name for n == 1 and "stem.n.ext" otherwise.
func candidateName(name string, n int) string {
	if n == 1 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "." + strconv.Itoa(n) + ext
}

// maxCollisions bounds the numeric suffix search.
const maxCollisions = 10000
