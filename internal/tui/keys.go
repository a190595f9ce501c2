package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the browser.
type KeyMap struct {
	// General
	Help key.Binding
	Quit key.Binding

	// Navigation
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding // Enter a directory, read a native file or import
	GoBack  key.Binding // Parent directory
	Refresh key.Binding
	Filter  key.Binding // Show only directories and model files

	// Actions
	Convert    key.Binding // Write the loaded model as .lmdl
	ConvertAll key.Binding
	Cancel     key.Binding
	Close      key.Binding

	// Inspector and log
	NextMesh  key.Binding
	PrevMesh  key.Binding
	Verbosity key.Binding
	ClearLog  key.Binding
	LogUp     key.Binding
	LogDown   key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		Open:    key.NewBinding(key.WithKeys("enter", "l", "right"), key.WithHelp("enter", "open")),
		GoBack:  key.NewBinding(key.WithKeys("h", "left", "backspace"), key.WithHelp("h", "parent")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "models only")),

		Convert:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "convert")),
		ConvertAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "convert all")),
		Cancel:     key.NewBinding(key.WithKeys("esc", "c"), key.WithHelp("esc", "cancel")),
		Close:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close model")),

		NextMesh:  key.NewBinding(key.WithKeys("]", "tab"), key.WithHelp("]", "next mesh")),
		PrevMesh:  key.NewBinding(key.WithKeys("[", "shift+tab"), key.WithHelp("[", "prev mesh")),
		Verbosity: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verbosity")),
		ClearLog:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "clear log")),
		LogUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "log up")),
		LogDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "log down")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Convert, k.ConvertAll, k.Cancel, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.GoBack, k.Refresh, k.Filter},
		{k.Convert, k.ConvertAll, k.Cancel, k.Close},
		{k.NextMesh, k.PrevMesh, k.Verbosity, k.ClearLog, k.LogUp, k.LogDown},
		{k.Help, k.Quit},
	}
}
