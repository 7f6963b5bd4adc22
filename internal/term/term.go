// Package term holds ANSI color state and terminal detection shared by the
// logger and the banner.
//
// [Configure] sets the palette once during startup; when colors are disabled
// every entry is an empty string so concatenation is a no-op.
package term

import (
	"os"
	"strings"

	"github.com/backmassage/quickconv/internal/config"
)

// ANSI color codes. Empty when colors are disabled.
var (
	Red     = ""
	Green   = ""
	Yellow  = ""
	Blue    = ""
	Cyan    = ""
	Magenta = ""
	NC      = "" // Reset sequence.
)

// Configure resolves the color mode against the current process environment
// and sets the package-level palette.
func Configure(mode config.ColorMode) {
	set(Resolve(mode, os.Stdout, os.Getenv))
}

func set(enable bool) {
	if !enable {
		Red, Green, Yellow, Blue, Cyan, Magenta, NC = "", "", "", "", "", "", ""
		return
	}
	Red = "\033[1;91m"
	Green = "\033[1;92m"
	Yellow = "\033[1;93m"
	Blue = "\033[1;94m"
	Cyan = "\033[1;96m"
	Magenta = "\033[1;95m"
	NC = "\033[0m"
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return NC != "" }

// Paint wraps s in color and a reset. Returns s unchanged when colors are off.
func Paint(color, s string) string {
	if color == "" || NC == "" {
		return s
	}
	return color + s + NC
}

// Resolve decides whether colors should be enabled for out. Auto mode
// requires a TTY, an empty NO_COLOR (https://no-color.org) and a TERM other
// than "dumb".
func Resolve(mode config.ColorMode, out *os.File, getenv func(string) string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return IsTerminal(out) &&
		getenv("NO_COLOR") == "" &&
		strings.ToLower(getenv("TERM")) != "dumb"
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
