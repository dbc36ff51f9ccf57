// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mediabot/mediabot/i18n"
	"github.com/mediabot/mediabot/internal/db"
	"github.com/mediabot/mediabot/internal/model"
)

// copyToClipboard is swapped in tests; headless CI has no clipboard.
var copyToClipboard = clipboard.WriteAll

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, back up and restore the download history",
	}
	cmd.PersistentFlags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "./mediabot.db", "Database connection string (DSN)")
	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryStatsCmd(),
		newHistoryBackupCmd(),
		newHistoryRestoreCmd(),
		newHistoryMaintainCmd(),
	)
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int
	var copyURL bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(appConfig)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.RecentDownloads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, i18n.T("history.empty"))
				return nil
			}
			fmt.Fprintln(out, renderHistory(rows))

			if copyURL {
				if err := copyToClipboard(rows[0].PageURL); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintln(out, i18n.T("history.copied", rows[0].PageURL))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of downloads to show")
	cmd.Flags().BoolVar(&copyURL, "copy", false, "Copy the page URL of the newest download to the clipboard")
	return cmd
}

func renderHistory(rows []model.Download) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "WHEN", "STATUS", "SIZE", "TITLE", "FILE")
	for _, d := range rows {
		size := ""
		if d.SizeBytes > 0 {
			size = fmt.Sprintf("%.2fMB", d.SizeMB())
		}
		t.Row(
			fmt.Sprintf("%d", d.ID),
			d.CreatedAt.Local().Format(time.DateTime),
			string(d.Status),
			size,
			d.Title,
			d.FileName,
		)
	}
	return t.String()
}

func newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count downloads per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(appConfig)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range []model.Status{model.StatusSent, model.StatusTooLarge, model.StatusFailed, model.StatusPending} {
				fmt.Fprintf(out, "%-10s %d\n", s, stats[s])
			}
			fmt.Fprintf(out, "%-10s %d\n", "total", stats.Total())
			return nil
		},
	}
}

func newHistoryBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [file]",
		Short: "Write the history to a zstd-compressed JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(appConfig)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.ExportDataForBackup(cmd.Context())
			if err != nil {
				return err
			}

			path := fmt.Sprintf("mediabot-history-%s.json.zst", time.Now().Format("2006-01-02"))
			if len(args) == 1 {
				path = args[0]
			}
			if !strings.HasSuffix(path, ".zst") {
				path += ".zst"
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			if err := db.WriteBackup(f, data); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("history.backup_written", path))
			return nil
		},
	}
}

func newHistoryRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the history with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()
			data, err := readBackup(f)
			if err != nil {
				return err
			}

			store, err := openStore(appConfig)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.ImportDataFromBackup(cmd.Context(), data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("history.restored", len(data.Downloads), args[0]))
			return nil
		},
	}
}

func readBackup(r io.Reader) (*model.BackupData, error) {
	data, err := db.ReadBackup(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return data, nil
}

func newHistoryMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run database maintenance (VACUUM, ANALYZE, OPTIMIZE)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunDBMaintenance(cmd.Context(), appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("history.maintained"))
			return nil
		},
	}
}
