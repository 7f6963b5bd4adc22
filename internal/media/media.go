// Package media defines the conversion capability shared by the audio and
// image handlers: accepted extensions, output extension, decode and encode.
package media

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies the media family a handler converts.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// ErrUnsupportedExt is returned when a path's extension is not accepted by a handler.
var ErrUnsupportedExt = errors.New("unsupported file extension")

// Decoded is a handler-specific in-memory representation of a source file.
// Only the handler that produced it knows its concrete type.
type Decoded interface {
	// Describe returns a short human summary for per-file log lines.
	Describe() string
}

// Handler converts one media kind to a single fixed output format.
// Implementations hold immutable encode options and are safe to reuse
// across files.
type Handler interface {
	Kind() Kind
	// Extensions lists accepted input extensions, lowercase, without dot.
	Extensions() []string
	// OutputExt is the output extension, lowercase, without dot.
	OutputExt() string
	// Decode reads path using its own extension as the declared format.
	Decode(ctx context.Context, path string) (Decoded, error)
	// Encode writes d to dst with the handler's fixed options.
	Encode(ctx context.Context, d Decoded, dst string) error
}

// Ext returns the lowercase extension of path without the leading dot.
func Ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Accepts reports whether h accepts path's extension (case-insensitive).
func Accepts(h Handler, path string) bool {
	ext := Ext(path)
	if ext == "" {
		return false
	}
	for _, e := range h.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// TargetPath returns path with its extension replaced by ext, keeping the
// directory and stem: "dir/a.m4a" → "dir/a.mp3".
func TargetPath(path, ext string) string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	return stem + "." + ext
}

// ExtensionList returns h's extensions sorted, for display.
func ExtensionList(h Handler) string {
	exts := append([]string(nil), h.Extensions()...)
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// Job is one discovered file scheduled for conversion. Created per file and
// discarded once processed.
type Job struct {
	Source string
	Target string
	Kind   Kind
}

// NewJob builds the Job for path under h. The target extension always equals
// h.OutputExt(), regardless of the input extension.
func NewJob(h Handler, path string) Job {
	return Job{
		Source: path,
		Target: TargetPath(path, h.OutputExt()),
		Kind:   h.Kind(),
	}
}

// InPlace reports whether the target resolves to the source itself (e.g.
// "photo.jpg" re-encoded to "photo.jpg").
func (j Job) InPlace() bool {
	return filepath.Clean(j.Source) == filepath.Clean(j.Target)
}
