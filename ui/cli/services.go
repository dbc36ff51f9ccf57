// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediabot/mediabot/config"
	"github.com/mediabot/mediabot/core/archive"
	"github.com/mediabot/mediabot/core/bot"
	"github.com/mediabot/mediabot/core/download"
	"github.com/mediabot/mediabot/core/keepalive"
	"github.com/mediabot/mediabot/core/launcher"
	"github.com/mediabot/mediabot/core/source"
	"github.com/mediabot/mediabot/core/telegram"
	"github.com/mediabot/mediabot/i18n"
	"github.com/mediabot/mediabot/internal/db"
	"github.com/mediabot/mediabot/internal/logging"
)

// transport is the Telegram side of the bot worker.
type transport interface {
	bot.Messenger
	Updates(ctx context.Context) <-chan bot.Update
}

// newTransport connects to the Bot API. Tests replace it with a fake.
var newTransport = func(token string) (transport, error) {
	return telegram.New(token)
}

// newDownloader builds the yt-dlp wrapper. Tests replace it with a fake.
var newDownloader = func(b config.Bot) download.Downloader {
	return download.NewYtDlp(b.YtDlpPath, download.Headers{
		UserAgent: b.UserAgent,
		Referer:   b.Referer,
		Origin:    b.Origin,
	})
}

// executable is the binary re-executed by `run --processes`.
var executable = os.Executable

func openStore(cfg config.Config) (*db.Store, error) {
	store, err := db.NewStoreFromDSN(cfg.Database.Type, cfg.Database.Dsn)
	if err != nil {
		return nil, errors.New(i18n.T("config.error_init_db", err))
	}
	return store, nil
}

// newBotService assembles the bot worker. The returned cleanup closes the
// history store and must run after the service stopped.
func newBotService(cfg config.Config) (launcher.Service, func(), error) {
	if err := cfg.ValidateBot(); err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logging.L.Warn("closing history store", "err", err)
		}
	}

	opts := []bot.Option{bot.WithHistory(store)}
	if cfg.Archive.Enabled {
		a, err := archive.New(cfg.Archive)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("archive: %w", err)
		}
		opts = append(opts, bot.WithArchiver(a))
	}

	tg, err := newTransport(cfg.Bot.Token)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect to telegram: %w", err)
	}

	b := bot.New(bot.Config{
		ChatID:           cfg.Bot.ChatID,
		MaxSendBytes:     cfg.Bot.MaxSendBytes,
		ProgressInterval: cfg.Bot.ProgressInterval,
		DownloadDir:      cfg.Bot.DownloadDir,
		KeepFiles:        cfg.Bot.KeepFiles,
	},
		tg,
		source.NewResolver(cfg.Bot.SourceURL, cfg.Bot.UserAgent, cfg.Bot.FetchTimeout),
		newDownloader(cfg.Bot),
		opts...,
	)

	svc := launcher.Func("bot", func(ctx context.Context) error {
		return b.Run(ctx, tg.Updates(ctx))
	})
	return svc, cleanup, nil
}

func newWebService(cfg config.Config) (launcher.Service, error) {
	if err := cfg.ValidateWeb(); err != nil {
		return nil, err
	}
	return keepalive.New(keepalive.Config{
		Addr:          cfg.Web.Addr(),
		SleepTimeout:  time.Duration(cfg.Web.SleepTimeout) * time.Second,
		CheckInterval: cfg.Web.CheckInterval,
	}), nil
}

// childServices re-executes this binary once per service, forwarding the
// flags that shape config loading.
func childServices(cmd *cobra.Command) ([]launcher.Service, error) {
	exe, err := executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	forward := func(names ...string) []string {
		var out []string
		for _, name := range names {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				out = append(out, "--"+name, f.Value.String())
			}
		}
		return out
	}
	shared := forward("config", "language", "log-format")
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		shared = append(shared, "--verbose")
	}

	// Each child only accepts its own service flags.
	own := map[string][]string{
		"bot": forward("database.type", "database.dsn"),
		"web": forward("web.host", "web.port"),
	}

	var services []launcher.Service
	for _, name := range []string{"bot", "web"} {
		args := append([]string{name}, shared...)
		args = append(args, own[name]...)
		services = append(services, &launcher.ProcessService{ServiceName: name, Path: exe, Args: args})
	}
	return services, nil
}

func runServices(ctx context.Context, services ...launcher.Service) error {
	for _, s := range services {
		logging.L.Info(i18n.T("run.starting", s.Name()))
	}
	err := launcher.Supervisor{}.Run(ctx, services...)
	logging.L.Info(i18n.T("run.stopped"))
	return err
}

func newRunCmd() *cobra.Command {
	var processes bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot worker and the keep-alive server together",
		Long: `Starts the Telegram bot worker and the keep-alive web server. The first
one to stop takes the other down with it, so an idle shutdown of the web
server ends the whole process.

With --processes both run as separate child processes of this binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Fail fast on credentials before anything is started.
			if err := appConfig.ValidateBot(); err != nil {
				return err
			}
			if err := appConfig.ValidateWeb(); err != nil {
				return err
			}

			if processes {
				services, err := childServices(cmd)
				if err != nil {
					return err
				}
				return runServices(cmd.Context(), services...)
			}

			botSvc, cleanup, err := newBotService(appConfig)
			if err != nil {
				return err
			}
			defer cleanup()
			webSvc, err := newWebService(appConfig)
			if err != nil {
				return err
			}
			return runServices(cmd.Context(), webSvc, botSvc)
		},
	}
	cmd.Flags().BoolVar(&processes, "processes", false, "Run bot and web as supervised child processes")
	applyDatabaseFlags(cmd)
	applyWebFlags(cmd)
	return cmd
}

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run only the Telegram bot worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newBotService(appConfig)
			if err != nil {
				return err
			}
			defer cleanup()
			return runServices(cmd.Context(), svc)
		},
	}
	applyDatabaseFlags(cmd)
	return cmd
}

func newWebCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Run only the keep-alive web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newWebService(appConfig)
			if err != nil {
				return err
			}
			return runServices(cmd.Context(), svc)
		},
	}
	applyWebFlags(cmd)
	return cmd
}
