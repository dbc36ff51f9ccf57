// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mediabot/mediabot/config"
	"github.com/mediabot/mediabot/i18n"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var output string
	var system bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file, prompting for the bot token and chat id",
		Long: `Writes the effective configuration (defaults, environment and any
existing file) to a YAML file after asking for the Telegram credentials.
The token is read without echo when stdin is a terminal. An empty answer
keeps the current value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appConfig
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			fmt.Fprint(out, i18n.T("config.token_prompt"))
			token, err := readSecret(cmd.InOrStdin(), in)
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			if token != "" {
				cfg.Bot.Token = token
			}

			fmt.Fprint(out, i18n.T("config.chat_prompt"))
			line, err := readLine(in)
			if err != nil {
				return fmt.Errorf("read chat id: %w", err)
			}
			if line != "" {
				id, err := strconv.ParseInt(line, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid chat id %q: %w", line, err)
				}
				cfg.Bot.ChatID = id
			}

			path := output
			if path == "" {
				path, err = config.GetConfigPath(system)
				if err != nil {
					return err
				}
			}
			if err := config.WriteConfigFileTo(&cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(out, i18n.T("config.written", path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (default: user config path)")
	cmd.Flags().BoolVar(&system, "system", false, "Write to the system-wide config path")
	return cmd
}

// readSecret reads one line without echo when src is a terminal and falls
// back to buffered reading otherwise.
func readSecret(src io.Reader, buf *bufio.Reader) (string, error) {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(buf)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
