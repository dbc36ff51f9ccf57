// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package runner executes external commands for the provisioning steps.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mediabot/mediabot/internal/logging"
)

// Runner runs name with args in dir ("" means the current directory).
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// stderrTail is how much stderr is kept for error messages.
const stderrTail = 4096

// Exec runs commands with os/exec and streams their output to the logger.
type Exec struct {
	// Prefix names the log entries; "" means the base name of the command.
	Prefix string
	// Output overrides where stdout and stderr go; nil means the logger.
	Output io.Writer
}

// Run implements Runner. On failure the error carries the tail of stderr.
func (e Exec) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderrOut io.Writer
	if e.Output != nil {
		// os/exec copies the two streams from separate goroutines.
		shared := &lockedWriter{w: e.Output}
		stdout, stderrOut = shared, shared
	} else {
		prefix := e.Prefix
		if prefix == "" {
			prefix = filepath.Base(name)
		}
		outLog, errLog := logging.Writer(prefix), logging.Writer(prefix)
		defer func() {
			_ = outLog.Close()
			_ = errLog.Close()
		}()
		stdout, stderrOut = outLog, errLog
	}
	var stderr tailBuffer
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderrOut, &stderr)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w (stderr: %s)", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// tailBuffer keeps the last stderrTail bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	if over := t.buf.Len() - stderrTail; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return t.buf.String() }

// Call is one recorded invocation.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Recorder is a Runner that records calls instead of executing them. A call
// whose command line starts with a key of Fail returns that error.
type Recorder struct {
	mu    sync.Mutex
	Calls []Call
	Fail  map[string]error
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, dir, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Call{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	r.Calls = append(r.Calls, c)
	line := c.String()
	for prefix, err := range r.Fail {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	return nil
}

// Lines returns the recorded command lines in order.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		out = append(out, c.String())
	}
	return out
}
