package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Poke key.Binding
	Help key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Poke, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Poke, k.Help, k.Quit}}
}

var defaultKeyMap = keyMap{
	Poke: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p/space", "poke"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
