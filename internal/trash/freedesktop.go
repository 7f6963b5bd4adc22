package trash

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// FreeDesktop implements the FreeDesktop.org Trash specification for a
// single trash root: the file goes to files/<name> and a matching
// info/<name>.trashinfo records where it came from.
type FreeDesktop struct {
	root string
	now  func() time.Time
}

// NewFreeDesktop returns a trasher rooted at root. The files and info
// directories are created on first use.
func NewFreeDesktop(root string) *FreeDesktop {
	return &FreeDesktop{root: root, now: time.Now}
}

func (t *FreeDesktop) Root() string { return t.root }

// Trash moves path into the trash. The info file is created first with
// O_EXCL to reserve the name, and removed again if the move fails.
func (t *FreeDesktop) Trash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err != nil {
		return err
	}

	filesDir := filepath.Join(t.root, "files")
	infoDir := filepath.Join(t.root, "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("create trash: %w", err)
		}
	}

	name, info, err := t.reserve(infoDir, filepath.Base(abs))
	if err != nil {
		return err
	}
	if _, err := info.WriteString(trashInfo(abs, t.now())); err != nil {
		info.Close()
		os.Remove(info.Name())
		return fmt.Errorf("write trashinfo: %w", err)
	}
	if err := info.Close(); err != nil {
		os.Remove(info.Name())
		return fmt.Errorf("write trashinfo: %w", err)
	}

	if err := move(abs, filepath.Join(filesDir, name)); err != nil {
		os.Remove(info.Name())
		return err
	}
	return nil
}

// reserve creates info/<name>.trashinfo for the first free name and returns
// the chosen name with the open info file.
func (t *FreeDesktop) reserve(infoDir, base string) (string, *os.File, error) {
	for n := 1; n <= maxCollisions; n++ {
		name := candidateName(base, n)
		if _, err := os.Lstat(filepath.Join(t.root, "files", name)); err == nil {
			continue
		}
		f, err := os.OpenFile(filepath.Join(infoDir, name+".trashinfo"),
			os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("create trashinfo: %w", err)
		}
		return name, f, nil
	}
	return "", nil, fmt.Errorf("no free trash name for %s", base)
}

// trashInfo renders the .trashinfo body. Path is percent-encoded with
// slashes kept, DeletionDate is local time without zone.
func trashInfo(abs string, when time.Time) string {
	u := url.URL{Path: abs}
	return "[Trash Info]\n" +
		"Path=" + u.EscapedPath() + "\n" +
		"DeletionDate=" + when.Format("2006-01-02T15:04:05") + "\n"
}
