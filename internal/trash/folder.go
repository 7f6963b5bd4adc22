package trash

import (
	"fmt"
	"os"
	"path/filepath"
)

// Folder moves files into a flat directory such as ~/.Trash on macOS. No
// restore metadata is written.
type Folder struct {
	root string
}

func NewFolder(root string) *Folder { return &Folder{root: root} }

func (t *Folder) Root() string { return t.root }

func (t *Folder) Trash(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return err
	}
	if err := os.MkdirAll(t.root, 0o700); err != nil {
		return fmt.Errorf("create trash: %w", err)
	}
	base := filepath.Base(path)
	for n := 1; n <= maxCollisions; n++ {
		dst := filepath.Join(t.root, candidateName(base, n))
		if _, err := os.Lstat(dst); err == nil {
			continue
		}
		return move(path, dst)
	}
	return fmt.Errorf("no free trash name for %s", base)
}
