package term

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/backmassage/quickconv/internal/config"
)

func TestResolve(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	env := func(string) string { return "" }
	tests := []struct {
		name string
		mode config.ColorMode
		out  *os.File
		want bool
	}{
		{"always", config.ColorAlways, nil, true},
		{"never", config.ColorNever, nil, false},
		{"auto on regular file", config.ColorAuto, f, false},
		{"auto on nil", config.ColorAuto, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.mode, tt.out, env); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestPaint(t *testing.T) {
	set(false)
	if got := Paint(Red, "x"); got != "x" {
		t.Errorf("Paint with colors off = %q, want %q", got, "x")
	}
	set(true)
	defer set(false)
	if got := Paint(Red, "x"); got != Red+"x"+NC {
		t.Errorf("Paint with colors on = %q", got)
	}
	if !Enabled() {
		t.Error("Enabled() should be true after set(true)")
	}
}
