package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into encoding, behavior, display, and utility.
// Negated flags (e.g. --no-exif) are applied after Parse so Config defaults hold unless set.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrHelp is returned by [ParseArgs] after --help or --version output was printed.
// Callers exit with status 0.
var ErrHelp = errors.New("help requested")

// ParseFlags parses os.Args into cfg. On --help or --version it prints and exits.
// On error it returns non-nil (e.g. unknown flag, bad mode).
func ParseFlags(cfg *Config, version string) error {
	err := ParseArgs(cfg, version, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, ErrHelp) {
		os.Exit(0)
	}
	return err
}

// ParseArgs is the testable core of [ParseFlags]: it parses args into cfg and
// writes help/version text to the given writers instead of exiting.
func ParseArgs(cfg *Config, version string, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("quickconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr, version) }

	// Negated/override flags: we capture bools then apply to cfg after Parse,
	// so that defaults from DefaultConfig() hold unless the user passes the flag.
	var negated negatedFlags
	var quality, profile string

	defineEncodingFlags(fs, cfg, &negated, &quality, &profile)
	defineBehaviorFlags(fs, cfg, &negated)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, &negated)

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelp
		}
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(stdout, version)
		return ErrHelp
	}
	if negated.showVersion {
		fmt.Fprintln(stdout, "quickconv v"+version)
		return ErrHelp
	}

	if quality != "" {
		q, err := parseInt(quality, "quality")
		if err != nil {
			return err
		}
		cfg.ImageQuality = q
	}
	if profile != "" {
		p, err := ParseColorProfile(profile)
		if err != nil {
			return err
		}
		cfg.ImageColorProfile = p
	}

	return parsePositionalArgs(positional, cfg)
}

// parseInterspersed parses flags that appear before, between or after the
// positional arguments, so "audios ~/Music --force" works. Everything after
// a "--" terminator is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. noExif -> KeepEXIF=false) or trigger exit (showHelp, showVersion).
type negatedFlags struct {
	noExif      bool
	force       bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineEncodingFlags registers -b/--bitrate, -q/--quality, --color-profile, --no-exif.
func defineEncodingFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags, quality, profile *string) {
	fs.StringVar(&cfg.AudioBitrate, "bitrate", cfg.AudioBitrate, "MP3 bitrate (e.g. 320k)")
	fs.StringVar(&cfg.AudioBitrate, "b", cfg.AudioBitrate, "Same as --bitrate")
	fs.StringVar(quality, "quality", "", "JPEG quality 1-100")
	fs.StringVar(quality, "q", "", "Same as --quality")
	fs.StringVar(profile, "color-profile", "", "Output color profile: srgb or display-p3")
	fs.BoolVar(&n.noExif, "no-exif", false, "Do not carry EXIF into converted images")
}

// defineBehaviorFlags registers dry-run, force, keep-originals, trash-dir, strict, report.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not write or trash anything")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
	fs.BoolVar(&n.force, "force", false, "Overwrite existing output files")
	fs.BoolVar(&n.force, "f", false, "Same as --force")
	fs.BoolVar(&cfg.KeepOriginals, "keep-originals", false, "Leave sources in place after conversion")
	fs.BoolVar(&cfg.KeepOriginals, "k", false, "Same as --keep-originals")
	fs.StringVar(&cfg.TrashDir, "trash-dir", "", "Trash directory to move originals into")
	fs.BoolVar(&cfg.StrictMode, "strict", false, "Disable automatic ffmpeg retry fallbacks")
	fs.StringVar(&cfg.ReportFile, "report", "", "Write a YAML batch report to file")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
}

// defineUtilityFlags registers --version and --help (exit after printing).
func defineUtilityFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noExif {
		cfg.KeepEXIF = false
	}
	if n.force {
		cfg.SkipExisting = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets Mode and the optional Path when not in CheckOnly mode.
func parsePositionalArgs(args []string, cfg *Config) error {
	if cfg.CheckOnly {
		return nil
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("need a mode and at most one path")
	}
	mode, err := ParseMode(args[0])
	if err != nil {
		return err
	}
	cfg.Mode = mode
	if len(args) == 2 {
		cfg.Path = NormalizePathArg(args[1])
	}
	return nil
}

// parseInt parses a string as an integer for numeric flags; returns a clear error on failure.
func parseInt(s, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number (got %q)", name, s)
	}
	return n, nil
}

// printUsage writes the help text. Column-aligned for readability.
func printUsage(w io.Writer, version string) {
	const col1 = 28 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "quickconv v" + version + " - convert audio to MP3 and images to JPEG"},
		{"", ""},
		{"  quickconv [OPTIONS] <image|images|audio|audios> [path]", ""},
		{"", ""},
		{"Modes", ""},
		{"  image", "Convert one image file to JPEG"},
		{"  images", "Convert every image in a folder to JPEG"},
		{"  audio", "Convert one audio file to MP3"},
		{"  audios", "Convert every audio file in a folder to MP3"},
		{"", "Without a path, a file or folder picker dialog is opened."},
		{"", "Options may appear before or after the mode and path."},
		{"", ""},
		{"Encoding", ""},
		{"  -b, --bitrate <value>", "MP3 bitrate (default: 320k)"},
		{"  -q, --quality <1-100>", "JPEG quality (default: 99)"},
		{"  --color-profile <name>", "Output color space: srgb (default) or display-p3"},
		{"  --no-exif", "Do not carry EXIF into converted images"},
		{"", ""},
		{"Output & behavior", ""},
		{"  -f, --force", "Overwrite existing output files"},
		{"  -d, --dry-run", "Preview only; do not write or trash anything"},
		{"  -k, --keep-originals", "Leave sources in place after conversion"},
		{"  --trash-dir <path>", "Trash directory (default: system trash)"},
		{"  --strict", "Disable automatic ffmpeg retry fallbacks"},
		{"  --report <path>", "Write a YAML batch report"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (ffmpeg, MP3 encoder, decoders, trash)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}
