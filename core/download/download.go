// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package download fetches a video page's media with yt-dlp.
package download

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
)

// progressPrefix marks the lines produced by the progress template.
const progressPrefix = "mediabot-progress"

// progressTemplate makes yt-dlp print "<prefix> <status> <done> <total> <estimate>"
// once per progress tick.
const progressTemplate = "download:" + progressPrefix +
	" %(progress.status)s %(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.total_bytes_estimate)s"

// Downloader downloads url into dir and returns the path of the final file.
// The progress callback receives percentages in [0, 100]; it may be nil.
type Downloader interface {
	Download(ctx context.Context, url, dir string, progress func(int)) (string, error)
}

// Headers are sent with every media request.
type Headers struct {
	UserAgent string
	Referer   string
	Origin    string
}

// YtDlp runs the yt-dlp binary.
type YtDlp struct {
	Path    string
	Headers Headers
}

// NewYtDlp returns a YtDlp using path, or "yt-dlp" from PATH when empty.
func NewYtDlp(path string, h Headers) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	return &YtDlp{Path: path, Headers: h}
}

// Args returns the yt-dlp argument list for url and dir.
func (y *YtDlp) Args(url, dir string) []string {
	args := []string{
		"--format", "best[ext=mp4]/best",
		"--output", filepath.Join(dir, "%(title).200s.%(ext)s"),
		"--http-chunk-size", "10M",
		"--no-playlist",
		"--hls-use-mpegts",
		"--merge-output-format", "mp4",
		"--quiet",
		"--no-warnings",
		"--progress",
		"--newline",
		"--progress-template", progressTemplate,
		"--print", "after_move:filepath",
	}
	if y.Headers.UserAgent != "" {
		args = append(args, "--add-header", "User-Agent:"+y.Headers.UserAgent)
	}
	if y.Headers.Referer != "" {
		args = append(args, "--add-header", "Referer:"+y.Headers.Referer)
	}
	if y.Headers.Origin != "" {
		args = append(args, "--add-header", "Origin:"+y.Headers.Origin)
	}
	return append(args, url)
}

// Download implements Downloader.
func (y *YtDlp) Download(ctx context.Context, url, dir string, progress func(int)) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, y.Path, y.Args(url, dir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", y.Path, err)
	}

	printed, scanErr := scanOutput(stdout, progress)
	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("yt-dlp %s: %w (stderr: %s)", url, err, strings.TrimSpace(stderr.String()))
	}
	if scanErr != nil {
		return "", fmt.Errorf("read yt-dlp output: %w", scanErr)
	}
	if progress != nil {
		progress(100)
	}
	return ResolvePath(printed)
}

// scanOutput consumes yt-dlp stdout, forwarding progress and returning the
// last non-progress line, which is the printed file path.
func scanOutput(r io.Reader, progress func(int)) (string, error) {
	var last string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if pct, ok := ParseProgress(line); ok {
			if progress != nil {
				progress(pct)
			}
			continue
		}
		if strings.HasPrefix(line, progressPrefix) {
			continue
		}
		last = line
	}
	return last, sc.Err()
}

// ParseProgress parses a progress template line. ok is false for lines that
// are not progress lines or that carry no usable total.
func ParseProgress(line string) (pct int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[0] != progressPrefix {
		return 0, false
	}
	if fields[1] == "finished" {
		return 100, true
	}
	if fields[1] != "downloading" {
		return 0, false
	}
	done, err := parseBytes(fields[2])
	if err != nil {
		return 0, false
	}
	total, err := parseBytes(fields[3])
	if err != nil || total <= 0 {
		total, err = parseBytes(fields[4])
		if err != nil || total <= 0 {
			return 0, false
		}
	}
	pct = int(done * 100 / total)
	return min(max(pct, 0), 100), true
}

// parseBytes accepts integers and yt-dlp's float estimates; "NA" is an error.
func parseBytes(s string) (float64, error) {
	if s == "NA" || s == "None" {
		return 0, errors.New("not available")
	}
	return strconv.ParseFloat(s, 64)
}

// ResolvePath returns p when it exists, otherwise p with its extension
// replaced by ".mp4" when that exists.
func ResolvePath(p string) (string, error) {
	if p == "" {
		return "", errors.New("yt-dlp did not report an output file")
	}
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	alt := strings.TrimSuffix(p, filepath.Ext(p)) + ".mp4"
	if _, err := os.Stat(alt); err == nil {
		return alt, nil
	}
	return "", fmt.Errorf("downloaded file not found: %s", p)
}

// Progress is a percentage shared between a download and its reporter.
type Progress struct {
	pct atomic.Int32
}

// Set stores pct clamped to [0, 100].
func (p *Progress) Set(pct int) {
	p.pct.Store(int32(min(max(pct, 0), 100)))
}

// Get returns the last stored percentage.
func (p *Progress) Get() int {
	return int(p.pct.Load())
}
