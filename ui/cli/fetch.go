// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mediabot/mediabot/core/source"
	"github.com/mediabot/mediabot/i18n"
	"github.com/mediabot/mediabot/ui/tui"
)

func newFetchCmd() *cobra.Command {
	var dir string
	var plain bool
	cmd := &cobra.Command{
		Use:   "fetch [url]",
		Short: "Download one video locally, without Telegram",
		Long: `Downloads a single video into the download directory using the same
yt-dlp settings as the bot. Without a URL a random page is resolved from
the configured source first.

A progress bar is shown on a terminal; --plain prints percentages instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dir == "" {
				dir = appConfig.Bot.DownloadDir
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create download dir: %w", err)
			}

			page := source.Page{Title: source.DefaultTitle()}
			if len(args) == 1 {
				page.URL = args[0]
			} else {
				r := source.NewResolver(appConfig.Bot.SourceURL, appConfig.Bot.UserAgent, appConfig.Bot.FetchTimeout)
				p, err := r.Resolve(ctx)
				if err != nil {
					return err
				}
				page = p
			}

			d := newDownloader(appConfig.Bot)
			fetch := func(ctx context.Context, progress func(int)) (string, error) {
				return d.Download(ctx, page.URL, dir, progress)
			}

			var path string
			var err error
			if plain || !isTerminal(cmd) {
				path, err = fetchPlain(ctx, cmd, fetch)
			} else {
				path, err = tui.RunFetch(ctx, page.Title, fetch)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("fetch.saved", path))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Download directory (default bot.download_dir)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the progress bar")
	return cmd
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// fetchPlain reports progress in steps of ten percent on stderr.
func fetchPlain(ctx context.Context, cmd *cobra.Command, fetch tui.FetchFunc) (string, error) {
	last := -1
	return fetch(ctx, func(pct int) {
		step := pct / 10 * 10
		if step <= last {
			return
		}
		last = step
		fmt.Fprintf(cmd.ErrOrStderr(), "%3d%%\n", step)
	})
}
