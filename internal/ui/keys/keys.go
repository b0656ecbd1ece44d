package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the key bindings shared by all views
type KeyMap struct {
	Quit      key.Binding
	Back      key.Binding
	Enter     key.Binding
	Tab       key.Binding
	ShiftTab  key.Binding
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Save      key.Binding
	Help      key.Binding
	Refresh   key.Binding
	New       key.Binding
	Edit      key.Binding
	Status    key.Binding
	Tags      key.Binding
	Generate  key.Binding
	Timer     key.Binding
	Recommend key.Binding
	AddGroup  key.Binding
	AddTag    key.Binding
	AddSub    key.Binding
	DelSub    key.Binding
	FormTags  key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "select"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Status: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "status"),
		),
		Tags: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tags"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate"),
		),
		Timer: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "work"),
		),
		Recommend: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "suggest"),
		),
		AddGroup: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "new group"),
		),
		AddTag: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "new tag"),
		),
		AddSub: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "add subtask"),
		),
		DelSub: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "remove subtask"),
		),
		FormTags: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "tags"),
		),
	}
}
