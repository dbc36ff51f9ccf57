// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package setup provisions the runtime the bot shells out to: the Python
// requirements, the headless browser and the extractor plugin. Steps run in
// order and the first failure stops the pipeline.
package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mediabot/mediabot/core/runner"
	"github.com/mediabot/mediabot/i18n"
	"github.com/mediabot/mediabot/internal/logging"
)

// ErrMissingRequirements is returned when the work directory has no
// requirements file.
var ErrMissingRequirements = errors.New("requirements file not found")

// Step is one provisioning action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError reports which step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("setup step %q: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Pipeline runs steps in order.
type Pipeline struct {
	Steps []Step
}

// Run executes every step and stops at the first failure.
func (p Pipeline) Run(ctx context.Context) error {
	log := logging.With("setup")
	for _, s := range p.Steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: s.Name, Err: err}
		}
		log.Info(i18n.T("setup.step_start", s.Name))
		if err := s.Run(ctx); err != nil {
			log.Error(i18n.T("setup.step_failed", s.Name, err))
			return &StepError{Step: s.Name, Err: err}
		}
	}
	log.Info(i18n.T("setup.done"))
	return nil
}

// PluginInstaller installs the extractor plugin. Satisfied by *plugin.Installer.
type PluginInstaller interface {
	Install(ctx context.Context) error
}

// Options configure the default steps.
type Options struct {
	WorkDir      string
	Requirements string
	Python       string
	Browser      string
	Plugin       PluginInstaller
}

// DefaultSteps returns the provisioning sequence: check for the
// requirements file, install it with pip, install the headless browser and
// install the plugin.
func DefaultSteps(o Options, r runner.Runner) []Step {
	if o.Requirements == "" {
		o.Requirements = "requirements.txt"
	}
	if o.Python == "" {
		o.Python = "python3"
	}
	if o.Browser == "" {
		o.Browser = "chromium"
	}
	steps := []Step{
		{
			Name: "check requirements",
			Run: func(context.Context) error {
				return CheckRequirements(o.WorkDir, o.Requirements)
			},
		},
		{
			Name: "install python dependencies",
			Run: func(ctx context.Context) error {
				return r.Run(ctx, o.WorkDir, o.Python, "-m", "pip", "install", "-r", o.Requirements)
			},
		},
		{
			Name: "install headless browser",
			Run: func(ctx context.Context) error {
				return r.Run(ctx, o.WorkDir, o.Python, "-m", "playwright", "install", o.Browser)
			},
		},
	}
	if o.Plugin != nil {
		steps = append(steps, Step{Name: "install plugin", Run: o.Plugin.Install})
	}
	return steps
}

// CheckRequirements verifies that file exists in dir.
func CheckRequirements(dir, file string) error {
	p := file
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, file)
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		where := dir
		if where == "" {
			where = "."
		}
		return fmt.Errorf("%w: %s", ErrMissingRequirements, i18n.T("setup.missing_requirements", file, where))
	}
	return nil
}
