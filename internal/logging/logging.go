// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging holds the process-wide logger. Every component logs through
// the package-level `L` (or a child obtained from With) so that the CLI can
// switch level and output format in one place.
package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
)

// L is the shared logger. Tests may swap it for a buffer-backed logger.
var L = clog.NewWithOptions(os.Stderr, clog.Options{
	ReportTimestamp: true,
	TimeFormat:      time.DateTime,
	Level:           clog.InfoLevel,
})

// Setup rebuilds L for the requested level and format. Unknown levels fall
// back to info; unknown formats fall back to text.
func Setup(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := clog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = clog.InfoLevel
	}
	var f clog.Formatter
	switch strings.ToLower(format) {
	case "json":
		f = clog.JSONFormatter
	case "logfmt":
		f = clog.LogfmtFormatter
	default:
		f = clog.TextFormatter
	}
	L = clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           lvl,
		Formatter:       f,
	})
}

// With returns a child logger carrying the component prefix.
func With(prefix string) *clog.Logger {
	return L.WithPrefix(prefix)
}

// Writer returns a writer that logs each written line at info level under
// the given prefix. Used to forward subprocess output. Close logs a trailing
// line that has no newline.
func Writer(prefix string) io.WriteCloser {
	return &lineWriter{log: With(prefix)}
}

type lineWriter struct {
	mu  sync.Mutex
	log *clog.Logger
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit(w.buf)
	w.buf = nil
	return nil
}

func (w *lineWriter) emit(b []byte) {
	if line := strings.TrimRight(string(b), "\r"); line != "" {
		w.log.Info(line)
	}
}

func Debugf(format string, args ...any) { L.Debugf(format, args...) }
func Infof(format string, args ...any)  { L.Infof(format, args...) }
func Warnf(format string, args ...any)  { L.Warnf(format, args...) }
func Errorf(format string, args ...any) { L.Errorf(format, args...) }
