// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

type KeyMap struct {
	Abort key.Binding
}

func (km KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Abort}
}

func (km KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{km.Abort}}
}

// KeyMap implements help.KeyMap
var _ help.KeyMap = KeyMap{}

var FetchKeyMap = KeyMap{
	Abort: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "abort"),
	),
}
