package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap contains the picker key bindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default bindings. Confirm and Cancel help
// texts are replaced by the request's button labels.
func DefaultKeyMap(positive, negative string) KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("o", "ctrl+s"),
			key.WithHelp("o", positive),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc", negative),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Confirm, k.Cancel}
}
