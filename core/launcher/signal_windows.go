//go:build windows

// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package launcher

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no SIGTERM for arbitrary processes.
func terminate(p *os.Process) error { return p.Kill() }

// killedByStop reports whether err is the exit of a killed child. Kill leaves
// no signal in the exit status, so any exit status counts.
func killedByStop(err error) bool {
	var ee *exec.ExitError
	return errors.As(err, &ee)
}
