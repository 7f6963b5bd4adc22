package check

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backmassage/quickconv/internal/config"
	"github.com/backmassage/quickconv/internal/ffmpeg"
	"github.com/backmassage/quickconv/internal/probe"
)

type mockLogger struct {
	lines  []string
	errors int
}

func (m *mockLogger) add(level, f string, a ...interface{}) {
	m.lines = append(m.lines, level+" "+fmt.Sprintf(f, a...))
}
func (m *mockLogger) Info(f string, a ...interface{})    { m.add("INFO", f, a...) }
func (m *mockLogger) Success(f string, a ...interface{}) { m.add("SUCCESS", f, a...) }
func (m *mockLogger) Warn(f string, a ...interface{})    { m.add("WARN", f, a...) }
func (m *mockLogger) Error(f string, a ...interface{}) {
	m.errors++
	m.add("ERROR", f, a...)
}
func (m *mockLogger) Debug(f string, a ...interface{}) { m.add("DEBUG", f, a...) }

func (m *mockLogger) contains(s string) bool {
	for _, l := range m.lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

// fakeTools points ffmpeg.Command and probe.Command at shell scripts.
func fakeTools(t *testing.T, ffmpegBody, ffprobeBody string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			t.Fatal(err)
		}
		return p
	}
	oldFF, oldProbe := ffmpeg.Command, probe.Command
	ffmpeg.Command = write("ffmpeg", ffmpegBody)
	probe.Command = write("ffprobe", ffprobeBody)
	t.Cleanup(func() { ffmpeg.Command, probe.Command = oldFF, oldProbe })
}

const versionOK = "echo 'ffmpeg version 6.1 Copyright (c) 2000-2023'\n"

func TestCheckDeps(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("all present", func(t *testing.T) {
		fakeTools(t, versionOK, versionOK)
		if err := CheckDeps(&cfg); err != nil {
			t.Errorf("got %v, want nil", err)
		}
	})

	t.Run("encoder missing", func(t *testing.T) {
		fakeTools(t, "echo \"Unknown encoder 'libmp3lame'\" >&2\nexit 1\n", versionOK)
		if err := CheckDeps(&cfg); err != ErrMP3EncoderMissing {
			t.Errorf("got %v, want ErrMP3EncoderMissing", err)
		}
	})

	t.Run("ffmpeg missing", func(t *testing.T) {
		old := ffmpeg.Command
		ffmpeg.Command = filepath.Join(t.TempDir(), "no-ffmpeg")
		defer func() { ffmpeg.Command = old }()
		if err := CheckDeps(&cfg); err != ErrFfmpegNotFound {
			t.Errorf("got %v, want ErrFfmpegNotFound", err)
		}
	})

	t.Run("ffprobe missing", func(t *testing.T) {
		fakeTools(t, versionOK, versionOK)
		probe.Command = filepath.Join(t.TempDir(), "no-ffprobe")
		if err := CheckDeps(&cfg); err != ErrFfprobeNotFound {
			t.Errorf("got %v, want ErrFfprobeNotFound", err)
		}
	})
}

func TestMP3TestArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	s := strings.Join(mp3TestArgs(&cfg), " ")
	if !strings.Contains(s, "-c:a libmp3lame -b:a 320k") {
		t.Errorf("unexpected args: %s", s)
	}
}

func TestRunCheck_AllGood(t *testing.T) {
	fakeTools(t, versionOK, versionOK)
	cfg := config.DefaultConfig()
	cfg.TrashDir = t.TempDir()

	log := &mockLogger{}
	if !RunCheck(&cfg, log) {
		t.Fatalf("RunCheck failed:\n%s", strings.Join(log.lines, "\n"))
	}
	if !log.contains("ffmpeg: ffmpeg version 6.1") {
		t.Error("version line not logged")
	}
	if !log.contains("Trash: " + cfg.TrashDir) {
		t.Error("trash root not logged")
	}
	if !log.contains("WebP") {
		t.Error("image codec line not logged")
	}
}

func TestRunCheck_ReportsFailures(t *testing.T) {
	fakeTools(t, "exit 1\n", versionOK)
	cfg := config.DefaultConfig()
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.TrashDir = filepath.Join(blocker, "trash") // parent is a file

	log := &mockLogger{}
	if RunCheck(&cfg, log) {
		t.Fatal("RunCheck should fail")
	}
	if !log.contains("libmp3lame test encode failed") {
		t.Error("encoder failure not logged")
	}
	if !log.contains("not writable") {
		t.Error("trash failure not logged")
	}
}

func TestRunCheck_KeepOriginalsSkipsTrash(t *testing.T) {
	fakeTools(t, versionOK, versionOK)
	cfg := config.DefaultConfig()
	cfg.KeepOriginals = true

	log := &mockLogger{}
	RunCheck(&cfg, log)
	if !log.contains("Trash: not used") {
		t.Error("expected trash to be skipped")
	}
}
