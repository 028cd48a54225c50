package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keymap defines the key bindings the status card responds to.
type keymap struct {
	refresh key.Binding
	quit    key.Binding
}

func newKeymap() keymap {
	return keymap{
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:    key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "quit")),
	}
}

// defaultKeymap provides a convenient globally accessible set of bindings.
var defaultKeymap = newKeymap()
