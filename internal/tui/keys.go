package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings active outside the text inputs.
type keyMap struct {
	Next        key.Binding
	Prev        key.Binding
	Blur        key.Binding
	Start       key.Binding
	Stop        key.Binding
	Delete      key.Binding
	DryRun      key.Binding
	Checksum    key.Binding
	PickSource  key.Binding
	PickDest    key.Binding
	ToggleLog   key.Binding
	SaveLog     key.Binding
	ToggleTheme key.Binding
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Prev:        key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Blur:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave field")),
		Start:       key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "start")),
		Stop:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete extraneous")),
		DryRun:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "dry run")),
		Checksum:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "checksum")),
		PickSource:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "browse source")),
		PickDest:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "browse dest")),
		ToggleLog:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log")),
		SaveLog:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save log")),
		ToggleTheme: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Next, k.ToggleLog, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Quit},
		{k.Next, k.Prev, k.Blur},
		{k.Delete, k.DryRun, k.Checksum},
		{k.PickSource, k.PickDest, k.ToggleLog, k.SaveLog, k.ToggleTheme},
	}
}
