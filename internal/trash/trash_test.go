package trash

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func fixedClock(tr *FreeDesktop) {
	tr.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local) }
}

func TestFreeDesktop_MovesAndWritesInfo(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a song.m4a", "audio")
	root := filepath.Join(t.TempDir(), "Trash")
	tr := NewFreeDesktop(root)
	fixedClock(tr)

	require.NoError(t, tr.Trash(src))

	assert.NoFileExists(t, src)
	b, err := os.ReadFile(filepath.Join(root, "files", "a song.m4a"))
	require.NoError(t, err)
	assert.Equal(t, "audio", string(b))

	info, err := os.ReadFile(filepath.Join(root, "info", "a song.m4a.trashinfo"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(info)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[Trash Info]", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Path=/"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "/a%20song.m4a"), lines[1])
	assert.Equal(t, "DeletionDate=2024-03-09T14:05:07", lines[2])
}

func TestFreeDesktop_NameCollision(t *testing.T) {
	root := t.TempDir()
	tr := NewFreeDesktop(root)

	for i, body := range []string{"one", "two", "three"} {
		dir := t.TempDir()
		require.NoError(t, tr.Trash(writeFile(t, dir, "photo.jpg", body)), "trash #%d", i)
	}

	for name, body := range map[string]string{
		"photo.jpg":   "one",
		"photo.2.jpg": "two",
		"photo.3.jpg": "three",
	} {
		b, err := os.ReadFile(filepath.Join(root, "files", name))
		require.NoError(t, err, name)
		assert.Equal(t, body, string(b))
		assert.FileExists(t, filepath.Join(root, "info", name+".trashinfo"))
	}
}

func TestFreeDesktop_MissingSource(t *testing.T) {
	root := t.TempDir()
	err := NewFreeDesktop(root).Trash(filepath.Join(t.TempDir(), "gone.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFreeDesktop_FailedMoveRemovesInfo(t *testing.T) {
	old := rename
	rename = func(string, string) error { return &os.LinkError{Op: "rename", Err: syscall.EACCES} }
	t.Cleanup(func() { rename = old })

	src := writeFile(t, t.TempDir(), "a.webm", "x")
	root := t.TempDir()
	require.Error(t, NewFreeDesktop(root).Trash(src))

	assert.FileExists(t, src)
	entries, err := os.ReadDir(filepath.Join(root, "info"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMove_CrossDeviceFallsBackToCopy(t *testing.T) {
	old := rename
	rename = func(a, b string) error { return &os.LinkError{Op: "rename", Old: a, New: b, Err: syscall.EXDEV} }
	t.Cleanup(func() { rename = old })

	src := writeFile(t, t.TempDir(), "clip.mov", "movie")
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dst := filepath.Join(t.TempDir(), "clip.mov")
	require.NoError(t, move(src, dst))

	assert.NoFileExists(t, src)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "movie", string(b))
	fi, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(mtime))
}

func TestFolder_Collision(t *testing.T) {
	root := t.TempDir()
	tr := NewFolder(root)
	require.NoError(t, tr.Trash(writeFile(t, t.TempDir(), "a.gif", "1")))
	require.NoError(t, tr.Trash(writeFile(t, t.TempDir(), "a.gif", "2")))

	assert.FileExists(t, filepath.Join(root, "a.gif"))
	assert.FileExists(t, filepath.Join(root, "a.2.gif"))
	assert.Equal(t, root, tr.Root())
}

func TestNew_DirOverride(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(dir)
	require.NoError(t, err)
	assert.IsType(t, &FreeDesktop{}, tr)
	assert.Equal(t, dir, tr.Root())
}

func TestXDGTrashDir(t *testing.T) {
	env := func(v string) func(string) string {
		return func(string) string { return v }
	}
	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{"unset", "", "/home/u/.local/share/Trash"},
		{"absolute", "/data", "/data/Trash"},
		{"relative ignored", "rel/share", "/home/u/.local/share/Trash"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), xdgTrashDir(filepath.FromSlash("/home/u"), env(tt.xdg)))
		})
	}
}

func TestCandidateName(t *testing.T) {
	assert.Equal(t, "a.jpg", candidateName("a.jpg", 1))
	assert.Equal(t, "a.7.jpg", candidateName("a.jpg", 7))
	assert.Equal(t, "README.2", candidateName("README", 2))
}

func TestNoop(t *testing.T) {
	src := writeFile(t, t.TempDir(), "keep.m4a", "x")
	require.NoError(t, Noop{}.Trash(src))
	assert.FileExists(t, src)
	assert.Empty(t, Noop{}.Root())
}
