package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Prev     key.Binding
	Next     key.Binding
	Select   key.Binding
	Up       key.Binding
	Down     key.Binding
	Apply    key.Binding
	Unapply  key.Binding
	Toggle   key.Binding
	ApplyAll key.Binding
	SkipAll  key.Binding
	Complete key.Binding
	Preview  key.Binding
	Confirm  key.Binding
	Dismiss  key.Binding
	Help     key.Binding
	Quit     key.Binding

	ClearToasts key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Prev:     key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("←/h", "prev file")),
		Next:     key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→/l", "next file")),
		Select:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "jump to file")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Apply:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply")),
		Unapply:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unapply")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		ApplyAll: key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "apply all")),
		SkipAll:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "skip all")),
		Complete: key.NewBinding(key.WithKeys("c", "ctrl+s"), key.WithHelp("c", "complete")),
		Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Confirm:  key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "confirm")),
		Dismiss:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		ClearToasts: key.NewBinding(key.WithKeys("x", "esc"), key.WithHelp("x", "dismiss")),
	}
}

// setMutable enables or disables every binding that changes the session.
func (k *keyMap) setMutable(on bool) {
	for _, b := range []*key.Binding{&k.Apply, &k.Unapply, &k.Toggle, &k.ApplyAll, &k.SkipAll, &k.Complete} {
		b.SetEnabled(on)
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Toggle, k.ApplyAll, k.Complete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Select, k.Up, k.Down},
		{k.Apply, k.Unapply, k.Toggle, k.Preview},
		{k.ApplyAll, k.SkipAll, k.Complete},
		{k.ClearToasts, k.Help, k.Quit},
	}
}

// dialogKeys is the help shown inside the confirmation dialog.
type dialogKeys struct{ confirm, dismiss key.Binding }

func (d dialogKeys) ShortHelp() []key.Binding  { return []key.Binding{d.confirm, d.dismiss} }
func (d dialogKeys) FullHelp() [][]key.Binding { return [][]key.Binding{d.ShortHelp()} }
