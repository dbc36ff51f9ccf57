// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/mediabot/mediabot/config"
	"github.com/mediabot/mediabot/core/plugin"
	"github.com/mediabot/mediabot/core/runner"
	"github.com/mediabot/mediabot/core/setup"
)

// newRunner executes external tools. Tests replace it with a runner.Recorder.
var newRunner = func() runner.Runner {
	return runner.Exec{Prefix: "setup"}
}

func newInstaller(s config.Setup, r runner.Runner) *plugin.Installer {
	return &plugin.Installer{
		Repo:   s.PluginRepo,
		Dir:    s.PluginDir,
		Python: s.Python,
		Runner: r,
	}
}

func newSetupCmd() *cobra.Command {
	var workDir string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Install the Python dependencies, the headless browser and the plugin",
		Long: `Provisions the runtime environment in order:

  1. checks that requirements.txt exists in the work directory
  2. python -m pip install -r requirements.txt
  3. python -m playwright install chromium
  4. installs the extractor plugin

The first failing step aborts the run with exit status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRunner()
			s := appConfig.Setup
			steps := setup.DefaultSteps(setup.Options{
				WorkDir:      workDir,
				Requirements: s.Requirements,
				Python:       s.Python,
				Browser:      s.Browser,
				Plugin:       newInstaller(s, r),
			}, r)
			return setup.Pipeline{Steps: steps}.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&workDir, "workdir", ".", "Directory containing requirements.txt")
	return cmd
}

func newPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage the extractor plugin",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Clone or update the plugin and install its requirements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newInstaller(appConfig.Setup, newRunner()).Install(cmd.Context())
		},
	})
	return cmd
}
