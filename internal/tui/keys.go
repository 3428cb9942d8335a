/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the countdown screen bindings.
type KeyMap struct {
	Quit     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Upcoming key.Binding
	Help     key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Upcoming, k.Quit, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Upcoming},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "l", "right"),
			key.WithHelp("tab", "next schedule"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "h", "left"),
			key.WithHelp("shift+tab", "prev schedule"),
		),
		Upcoming: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "toggle upcoming"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}
