package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the statement viewer's bindings. It implements help.KeyMap.
type KeyMap struct {
	Up, Down, PageUp, PageDown, Home, End key.Binding

	ToggleUnknown, NextPeriod, PrevPeriod key.Binding

	ToggleHelp, Quit key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns vim-style bindings with arrow-key equivalents.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       bind("↑/k", "up", "k", "up"),
		Down:     bind("↓/j", "down", "j", "down"),
		PageUp:   bind("pgup", "page up", "pgup", "ctrl+u"),
		PageDown: bind("pgdn", "page down", "pgdown", "ctrl+d"),
		Home:     bind("g", "first row", "home", "g"),
		End:      bind("G", "last row", "end", "G"),

		ToggleUnknown: bind("u", "unknown rows only", "u"),
		NextPeriod:    bind("→/l", "next period", "l", "right", "tab"),
		PrevPeriod:    bind("←/h", "previous period", "h", "left", "shift+tab"),

		ToggleHelp: bind("?", "help", "?"),
		Quit:       bind("q", "quit", "q", "ctrl+c", "esc"),
	}
}

// ShortHelp lists the footer bindings.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.ToggleUnknown, k.NextPeriod, k.ToggleHelp, k.Quit}
}

// FullHelp groups every binding into columns: movement, view, application.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.ToggleUnknown, k.NextPeriod, k.PrevPeriod},
		{k.ToggleHelp, k.Quit},
	}
}
