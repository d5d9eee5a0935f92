package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the console.
type KeyMap struct {
	// General
	Help key.Binding
	Quit key.Binding
	Back key.Binding

	// Navigation
	Up         key.Binding
	Down       key.Binding
	GotoTop    key.Binding
	GotoBottom key.Binding
	Open       key.Binding

	// List
	Filter      key.Binding
	ClearFilter key.Binding
	Find        key.Binding
	Refresh     key.Binding
	ListJSON    key.Binding

	// Record actions
	Create key.Binding
	Edit   key.Binding
	Delete key.Binding
	JSON   key.Binding

	// Forms and confirmation
	NextField  key.Binding
	PrevField  key.Binding
	NextChoice key.Binding
	Submit     key.Binding
	Yes        key.Binding
	No         key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Back: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),

		Up:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		GotoTop:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		GotoBottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),

		Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		ClearFilter: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filter")),
		Find:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "find in list")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		ListJSON:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "list json")),

		Create: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		JSON:   key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "json")),

		NextField:  key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		PrevField:  key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		NextChoice: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next choice")),
		Submit:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Yes:        key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		No:         key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
	}
}

func (k KeyMap) listHelp() []key.Binding {
	return []key.Binding{k.Open, k.Filter, k.ClearFilter, k.Find, k.Create, k.Refresh, k.ListJSON, k.Help, k.Quit}
}

func (k KeyMap) detailHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Delete, k.JSON, k.Back}
}

func (k KeyMap) formHelp() []key.Binding {
	return []key.Binding{k.NextField, k.PrevField, k.NextChoice, k.Submit, k.Back}
}

func (k KeyMap) confirmHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No}
}
