package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spindle/internal/playback"
	"github.com/desertthunder/spindle/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaybackEvent MsgKind = iota
	MsgEventsClosed
	MsgCommandDone
	MsgProgressUpdate
	MsgLibraryLoaded
)

type commandResult struct {
	name string
	err  error
}

type libraryResult struct {
	result *tasks.SyncResult
	err    error
}

// playbackEventMsg is the constructor for [MsgPlaybackEvent]
func playbackEventMsg(ev playback.Event) Msg {
	return Msg{kind: MsgPlaybackEvent, data: ev}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(name string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: commandResult{name: name, err: err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// libraryLoadedMsg is the constructor for [MsgLibraryLoaded]
func libraryLoadedMsg(result *tasks.SyncResult, err error) Msg {
	return Msg{kind: MsgLibraryLoaded, data: libraryResult{result: result, err: err}}
}
