// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package plugin installs the extractor plugin that yt-dlp loads for the
// media site. The plugin lives in its own git repository; installing it
// means cloning (or updating) that checkout and installing its Python
// requirements.
package plugin

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

// Installer clones Repo into Dir and installs its requirements with Python.
type Installer struct {
	Repo   string
	Dir    string
	Python string
	Runner runner.Runner
}

// Install is idempotent: an existing checkout is fast-forwarded instead of
// cloned again.
func (i *Installer) Install(ctx context.Context) error {
	log := logging.With("plugin")
	if i.Repo == "" || i.Dir == "" {
		return errors.New("plugin repository and directory are required")
	}
	log.Info(i18n.T("plugin.installing", i.Repo))

	if err := i.fetch(ctx); err != nil {
		log.Error(i18n.T("plugin.failed", err))
		return err
	}

	req := filepath.Join(i.Dir, "requirements.txt")
	if _, err := os.Stat(req); err == nil {
		if err := i.Runner.Run(ctx, "", i.python(), "-m", "pip", "install", "-r", req); err != nil {
			err = fmt.Errorf("install plugin requirements: %w", err)
			log.Error(i18n.T("plugin.failed", err))
			return err
		}
	}

	log.Info(i18n.T("plugin.installed"))
	return nil
}

func (i *Installer) fetch(ctx context.Context) error {
	info, err := os.Stat(i.Dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := i.Runner.Run(ctx, "", "git", "clone", i.Repo, i.Dir); err != nil {
			return fmt.Errorf("clone plugin: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("stat plugin dir: %w", err)
	case !info.IsDir():
		return fmt.Errorf("plugin path %s is not a directory", i.Dir)
	}
	if err := i.Runner.Run(ctx, "", "git", "-C", i.Dir, "pull", "--ff-only"); err != nil {
		return fmt.Errorf("update plugin: %w", err)
	}
	return nil
}

func (i *Installer) python() string {
	if i.Python == "" {
		return "python3"
	}
	return i.Python
}
