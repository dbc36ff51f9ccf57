// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package download

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func TestParseProgress(t *testing.T) {
	cases := []struct {
		line string
		pct  int
		ok   bool
	}{
		{progressPrefix + " downloading 50 100 NA", 50, true},
		{progressPrefix + " downloading 25 NA 200.0", 12, true},
		{progressPrefix + " downloading 25 0 NA", 0, false},
		{progressPrefix + " downloading 25 NA NA", 0, false},
		{progressPrefix + " finished 100 100 NA", 100, true},
		{progressPrefix + " downloading 300 100 NA", 100, true},
		{"/tmp/file.mp4", 0, false},
		{progressPrefix + " error 1 2 3", 0, false},
	}
	for _, c := range cases {
		pct, ok := ParseProgress(c.line)
		if pct != c.pct || ok != c.ok {
			t.Fatalf("ParseProgress(%q) = (%d, %v), want (%d, %v)", c.line, pct, ok, c.pct, c.ok)
		}
	}
}

func TestArgs(t *testing.T) {
	y := NewYtDlp("", Headers{UserAgent: "ua", Referer: "https://ref/", Origin: "https://origin"})
	if y.Path != "yt-dlp" {
		t.Fatalf("expected default path, got %q", y.Path)
	}
	args := y.Args("https://example/v", "/dl")
	for _, want := range []string{"best[ext=mp4]/best", "--no-playlist", "--hls-use-mpegts", "User-Agent:ua", "Referer:https://ref/", "Origin:https://origin", "after_move:filepath"} {
		if !slices.Contains(args, want) {
			t.Fatalf("missing %q in %v", want, args)
		}
	}
	if args[len(args)-1] != "https://example/v" {
		t.Fatalf("url must be last, got %v", args)
	}
	if !slices.Contains(args, filepath.Join("/dl", "%(title).200s.%(ext)s")) {
		t.Fatalf("missing output template in %v", args)
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	mp4 := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(mp4, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got, err := ResolvePath(mp4); err != nil || got != mp4 {
		t.Fatalf("ResolvePath(existing) = %q, %v", got, err)
	}
	if got, err := ResolvePath(filepath.Join(dir, "video.webm")); err != nil || got != mp4 {
		t.Fatalf("expected .mp4 fallback, got %q, %v", got, err)
	}
	if _, err := ResolvePath(filepath.Join(dir, "missing.mkv")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := ResolvePath(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestProgressClamps(t *testing.T) {
	var p Progress
	p.Set(42)
	if p.Get() != 42 {
		t.Fatalf("got %d", p.Get())
	}
	p.Set(-1)
	if p.Get() != 0 {
		t.Fatalf("got %d", p.Get())
	}
	p.Set(1000)
	if p.Get() != 100 {
		t.Fatalf("got %d", p.Get())
	}
}

// fakeYtDlp writes a shell script that mimics yt-dlp's output.
func fakeYtDlp(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDownload_ReportsProgressAndPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "clip.mp4")
	bin := fakeYtDlp(t, strings.Join([]string{
		"echo '" + progressPrefix + " downloading 10 100 NA'",
		"echo '" + progressPrefix + " downloading 60 100 NA'",
		"printf x > '" + out + "'",
		"echo '" + out + "'",
	}, "\n")+"\n")

	var seen []int
	got, err := NewYtDlp(bin, Headers{}).Download(context.Background(), "https://example/v", dir, func(p int) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got != out {
		t.Fatalf("path = %q, want %q", got, out)
	}
	if !slices.Equal(seen, []int{10, 60, 100}) {
		t.Fatalf("progress = %v", seen)
	}
}

func TestDownload_FailureIncludesStderr(t *testing.T) {
	bin := fakeYtDlp(t, "echo 'ERROR: unsupported URL' >&2\nexit 1\n")
	_, err := NewYtDlp(bin, Headers{}).Download(context.Background(), "https://example/v", t.TempDir(), nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported URL") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
