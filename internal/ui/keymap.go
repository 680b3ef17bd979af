package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the progress view
type KeyMap struct {
	Quit       key.Binding
	ToggleLogs key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("l", "ctrl+l"),
			key.WithHelp("l", "toggle logs"),
		),
	}
}
