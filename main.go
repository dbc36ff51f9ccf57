// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Mediabot.
//
// Usage:
//
//	go run . [flags]
//	./mediabot run
//
// See --help for the available commands.
package main

import (
	"fmt"
	"os"

	"github.com/mediabot/mediabot/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mediabot: %v\n", err)
		os.Exit(1)
	}
}
