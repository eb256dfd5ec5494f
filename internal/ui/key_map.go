package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	playPause  key.Binding
	next       key.Binding
	previous   key.Binding
	seekAhead  key.Binding
	seekBack   key.Binding
	volumeUp   key.Binding
	volumeDown key.Binding
	shuffle    key.Binding
	repeat     key.Binding
	library    key.Binding
	sync       key.Binding
	enter      key.Binding
	back       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		playPause:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		seekAhead:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+10s")),
		seekBack:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-10s")),
		volumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		shuffle:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		library:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "library")),
		sync:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "sync")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.next, k.previous, k.library, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.next, k.previous},
		{k.seekAhead, k.seekBack, k.volumeUp, k.volumeDown},
		{k.shuffle, k.repeat},
		{k.library, k.sync, k.quit},
	}
}
