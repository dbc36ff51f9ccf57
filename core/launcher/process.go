// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/mediabot/mediabot/internal/logging"
)

// DefaultWaitDelay is how long a child gets after the stop signal before it
// is killed.
const DefaultWaitDelay = 10 * time.Second

// ProcessService runs a child process. Cancelling the context sends the
// platform stop signal (SIGTERM on Unix) and kills the child after
// WaitDelay. Output is forwarded line by line to the logger.
type ProcessService struct {
	ServiceName string
	Path        string
	Args        []string
	// Env is appended to the parent environment.
	Env       []string
	Dir       string
	WaitDelay time.Duration
}

// Name implements Service.
func (p *ProcessService) Name() string { return p.ServiceName }

// Run implements Service. A child that exits because of the stop signal is
// not an error; a child that fails on its own is, even during shutdown.
func (p *ProcessService) Run(ctx context.Context) error {
	var stopped atomic.Bool
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Cancel = func() error {
		stopped.Store(true)
		return terminate(cmd.Process)
	}
	cmd.WaitDelay = p.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	cmd.Dir = p.Dir
	cmd.Env = append(os.Environ(), p.Env...)
	stdout, stderr := logging.Writer(p.ServiceName), logging.Writer(p.ServiceName)
	defer func() {
		_ = stdout.Close()
		_ = stderr.Close()
	}()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// Cancelled before start, or the child exited cleanly after the signal.
		return nil
	case stopped.Load() && (killedByStop(err) || errors.Is(err, exec.ErrWaitDelay)):
		return nil
	}
	return fmt.Errorf("process %s: %w", p.ServiceName, err)
}
