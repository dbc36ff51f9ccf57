// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config provides configuration loading and persistence for Mediabot.
// It uses Viper for file/env/flag parsing. Besides the MEDIABOT_* variables it
// honors the bare BOT_TOKEN, CHAT_ID, PORT and SLEEP_TIMEOUT variables that
// container deployments set.
package config
