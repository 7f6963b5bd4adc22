package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/quickconv/internal/media"
)

// tempMarker appears in the names of in-flight outputs; leftovers from an
// interrupted run are never picked up as sources.
const tempMarker = ".quickconv-"

// Discover lists the regular files directly under dir whose extension h
// accepts, compared case-insensitively. Subdirectories are not entered.
// Paths are returned in lexicographic order of their names.
func Discover(dir string, h media.Handler) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if strings.Contains(name, tempMarker) {
			continue
		}
		path := filepath.Join(dir, name)
		if !isRegular(path, e) {
			continue
		}
		if media.Accepts(h, path) {
			files = append(files, path)
		}
	}
	return files, nil
}

// isRegular follows symlinks so a link to a file counts as a file.
func isRegular(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
