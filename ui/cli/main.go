// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the root command, the persistent flags and the config,
// logging and i18n bootstrap shared by every subcommand.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mediabot/mediabot/buildvars"
	"github.com/mediabot/mediabot/config"
	"github.com/mediabot/mediabot/i18n"
	"github.com/mediabot/mediabot/internal/db"
	"github.com/mediabot/mediabot/internal/logging"
)

const modulePath = "github.com/mediabot/mediabot"

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var appConfig config.Config

func setupDefaultServices(cmd *cobra.Command, _ []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	notFound := false
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		notFound = true
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		cfg.Log.Format = f.Value.String()
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		cfg.Log.Level = "debug"
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	db.SetDebug(verbose)
	i18n.Init(cfg.Language)

	if notFound {
		logging.L.Debug(i18n.T("config.not_found"))
	}

	appConfig = cfg
	return nil
}

// Execute runs the CLI entrypoint with SIGINT and SIGTERM wired to the
// command context. The root main package handles process exit.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := NewRootCmd().ExecuteContext(ctx)
	if errors.Is(err, errVersionShown) {
		return nil
	}
	return err
}

func applyDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	cmd.Flags().String("database.dsn", "./mediabot.db", "Database connection string (DSN)")
}

func applyWebFlags(cmd *cobra.Command) {
	cmd.Flags().String("web.host", "0.0.0.0", "Address the keep-alive server binds to")
	cmd.Flags().Int("web.port", 5000, "Port the keep-alive server listens on")
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// NewRootCmd creates a fresh root command with every subcommand attached.
// Tests call it once per case so flag state never leaks between them.
func NewRootCmd() *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "mediabot",
		Short: "Mediabot relays random videos from a media site into a Telegram chat.",
		Long: `Mediabot is a private Telegram bot. On /random it resolves a random
video page, downloads it with yt-dlp and uploads the file to the chat.
A small keep-alive web server runs next to it so free hosting tiers keep
the container awake while it is being pinged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), compositeVersion())
				return errVersionShown
			}
			return setupDefaultServices(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default searches ./mediabot.yaml and the user config dir)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().String("language", "en", "Language for bot replies and CLI output (en, de)")
	cmd.PersistentFlags().String("log-format", "text", "Log output format (text, json, logfmt)")

	cmd.AddCommand(
		newRunCmd(),
		newBotCmd(),
		newWebCmd(),
		newSetupCmd(),
		newPluginCmd(),
		newFetchCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return cmd
}

// errVersionShown stops command execution after --version printed.
var errVersionShown = errors.New("version shown")

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mediabot %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion combines the linker-provided values with the module
// build info. info may be nil, in which case the running binary's build info
// is read.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	if buildvars.Commit != "" {
		resolvedCommit = buildvars.Commit
	}
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module as a dependency.
		if resolvedVersion == "dev" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}

		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && resolvedCommit != "dev" && resolvedCommit != "" {
		resolvedVersion = resolvedCommit
	}

	return resolvedVersion, resolvedCommit, resolvedDate
}
