// Package ui implements an interactive terminal player using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [NowPlayingView] : Current track, progress bar, device and playback modes
//  2. [LibraryView] : Browse saved tracks and start playback of a selection
//  3. [SyncView] : Monitor a library download in progress
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Playback events arrive from the store's broadcaster and commands go out through the dispatcher, so the
// view never talks to the remote API directly.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
