// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Mediabot using Cobra.
// It loads configuration, wires the core packages together and exposes them as
// commands. Business logic stays in `core`; the CLI only assembles it.
package cli
