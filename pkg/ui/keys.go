package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the dashboard bindings. It implements help.KeyMap.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	Toggle    key.Binding
	Parent    key.Binding
	TopLevel  key.Binding
	Team      key.Binding
	Jump      key.Binding
	Refresh   key.Binding
	CopyPath  key.Binding
	Detail    key.Binding
	PageDown  key.Binding
	PageUp    key.Binding
	Help      key.Binding
	Quit      key.Binding
	Cancel    key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "expand")),
		Parent:   key.NewBinding(key.WithKeys("h", "backspace", "left"), key.WithHelp("h", "breadcrumb up")),
		TopLevel: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "top level")),
		Team:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "team")),
		Jump:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "jump to id")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		CopyPath: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy path")),
		Detail:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "details")),
		PageDown: key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "page down")),
		PageUp:   key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "page up")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Toggle, k.Parent, k.Jump, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageDown, k.PageUp},
		{k.Select, k.Toggle, k.Parent, k.TopLevel},
		{k.Team, k.Jump, k.Detail, k.CopyPath},
		{k.Refresh, k.Help, k.Quit},
	}
}
