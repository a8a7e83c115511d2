package main

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
)

type keyMap struct {
	Toggle    key.Binding
	SelectAll key.Binding
	Bulk      key.Binding
	NextPage  key.Binding
	PrevPage  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space", "x"),
			key.WithHelp("space", "toggle"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select page"),
		),
		Bulk: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bulk select"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "n"),
			key.WithHelp("→/n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "p"),
			key.WithHelp("←/p", "prev page"),
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
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.SelectAll, k.Bulk, k.PrevPage, k.NextPage, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Toggle, k.SelectAll, k.Bulk}, {k.PrevPage, k.NextPage, k.Help, k.Quit}}
}

// tableKeyMap is the table's default navigation without the keys the
// selection bindings above take over.
func tableKeyMap() table.KeyMap {
	km := table.DefaultKeyMap()
	km.PageDown.SetKeys("pgdown", "f")
	km.PageUp.SetKeys("pgup")
	km.HalfPageDown.SetKeys("ctrl+d")
	km.HalfPageUp.SetKeys("ctrl+u")
	return km
}
