package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/playback"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/tasks"
)

const (
	seekStepMS   = 10000
	volumeStep   = 5
	progressBarW = 40
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	NowPlayingView ViewState = iota
	LibraryView
	SyncView
)

// Player is the command surface the TUI drives, satisfied by [playback.Dispatcher].
type Player interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMS int) error
	SetShuffle(ctx context.Context, state bool) error
	SetRepeat(ctx context.Context, mode models.RepeatMode) error
	SetVolume(ctx context.Context, percent int) error
	PlayTracks(ctx context.Context, uris []string) error
}

// Library loads the saved-track collection, satisfied by [tasks.LibraryEngine].
type Library interface {
	Sync(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	store   *playback.Store
	player  Player
	library Library

	events      <-chan playback.Event
	unsubscribe func()

	snapshot   *models.Snapshot
	progressMS int
	local      bool
	status     string
	err        error

	width        int
	height       int
	trackList    list.Model
	libraryReady bool
	progressChan chan tasks.ProgressUpdate
	syncDone     chan Msg
	progress     tasks.ProgressUpdate
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model subscribed to store's events.
func NewModel(ctx context.Context, store *playback.Store, player Player, library Library) *Model {
	events, unsubscribe := store.Events().Subscribe()
	m := &Model{
		ctx:         ctx,
		view:        NowPlayingView,
		store:       store,
		player:      player,
		library:     library,
		events:      events,
		unsubscribe: unsubscribe,
		trackList:   list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:        help.New(),
		keys:        newKeyMap(),
	}
	m.trackList.Title = "Saved Tracks"

	if current, ok := store.Get(); ok {
		m.snapshot = &current
		m.progressMS = store.Progress()
	}
	return m
}

// Close releases the event subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts listening for playback events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case NowPlayingView:
			return m.handleNowPlayingKeys(msg)
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaybackEvent:
		m.applyEvent(msg.data.(playback.Event))
		return m, m.waitForEvent()

	case MsgEventsClosed:
		m.events = nil
		return m, nil

	case MsgCommandDone:
		result := msg.data.(commandResult)
		if result.err != nil {
			m.err = result.err
			m.status = ""
		} else {
			m.err = nil
			m.status = result.name
		}
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgLibraryLoaded:
		loaded := msg.data.(libraryResult)
		m.progressChan, m.syncDone = nil, nil
		if loaded.err != nil {
			m.view = NowPlayingView
			m.err = loaded.err
			return m, nil
		}
		m.libraryReady = true
		m.view = LibraryView
		m.trackList.Title = fmt.Sprintf("Saved Tracks (%d, from %s)", len(loaded.result.Tracks), loaded.result.Tier)
		return m, m.trackList.SetItems(trackItems(loaded.result.Tracks))
	}
	return m, nil
}

func (m *Model) applyEvent(ev playback.Event) {
	switch ev.Kind {
	case playback.EventStateChanged:
		m.snapshot = ev.Snapshot
	case playback.EventProgressChanged:
		m.progressMS = ev.ProgressMS
	case playback.EventLocalityChanged:
		m.local = ev.Local
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LibraryView:
		return m.renderLibrary()
	case SyncView:
		return m.renderSync()
	default:
		return m.renderNowPlaying()
	}
}

func (m *Model) handleNowPlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.snapshot

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.library):
		if m.libraryReady {
			m.view = LibraryView
			return m, nil
		}
		return m, m.startSync()
	case key.Matches(msg, m.keys.sync):
		return m, m.startSync()
	case key.Matches(msg, m.keys.playPause):
		if s != nil && s.IsPlaying {
			return m, m.run("pause", m.player.Pause)
		}
		return m, m.run("play", m.player.Play)
	case key.Matches(msg, m.keys.next):
		return m, m.run("next", m.player.Next)
	case key.Matches(msg, m.keys.previous):
		return m, m.run("previous", m.player.Previous)
	case key.Matches(msg, m.keys.seekAhead), key.Matches(msg, m.keys.seekBack):
		if s == nil {
			return m, nil
		}
		delta := seekStepMS
		if key.Matches(msg, m.keys.seekBack) {
			delta = -seekStepMS
		}
		target := min(max(m.progressMS+delta, 0), max(s.DurationMS(), 0))
		return m, m.run("seek", func(ctx context.Context) error { return m.player.Seek(ctx, target) })
	case key.Matches(msg, m.keys.volumeUp), key.Matches(msg, m.keys.volumeDown):
		if s == nil {
			return m, nil
		}
		delta := volumeStep
		if key.Matches(msg, m.keys.volumeDown) {
			delta = -volumeStep
		}
		volume := min(max(s.Device.VolumePercent+delta, 0), 100)
		return m, m.run("volume", func(ctx context.Context) error { return m.player.SetVolume(ctx, volume) })
	case key.Matches(msg, m.keys.shuffle):
		state := s == nil || !s.Shuffle
		return m, m.run("shuffle", func(ctx context.Context) error { return m.player.SetShuffle(ctx, state) })
	case key.Matches(msg, m.keys.repeat):
		mode := models.RepeatContext
		if s != nil {
			mode = nextRepeat(s.Repeat)
		}
		return m, m.run("repeat", func(ctx context.Context) error { return m.player.SetRepeat(ctx, mode) })
	}
	return m, nil
}

func nextRepeat(mode models.RepeatMode) models.RepeatMode {
	switch mode {
	case models.RepeatOff:
		return models.RepeatContext
	case models.RepeatContext:
		return models.RepeatTrack
	default:
		return models.RepeatOff
	}
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.library):
		m.view = NowPlayingView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			uris := []string{item.track.URI}
			m.view = NowPlayingView
			return m, m.run("play "+item.track.Name, func(ctx context.Context) error { return m.player.PlayTracks(ctx, uris) })
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != LibraryView {
		return m, nil
	}
	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

// run executes a player command off the update loop.
func (m *Model) run(name string, fn func(context.Context) error) tea.Cmd {
	m.status = name + "..."
	return func() tea.Msg {
		return commandDoneMsg(name, fn(m.ctx))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return playbackEventMsg(ev)
	}
}

func (m *Model) startSync() tea.Cmd {
	if m.library == nil || m.progressChan != nil {
		return nil
	}
	m.view = SyncView
	m.progress = tasks.ProgressUpdate{}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	progress := m.progressChan
	done := make(chan Msg, 1)
	go func() {
		result, err := m.library.Sync(m.ctx, progress)
		done <- libraryLoadedMsg(result, err)
		close(progress)
	}()

	m.syncDone = done
	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.syncDone
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderNowPlaying() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("spindle"))
	b.WriteString("\n")

	s := m.snapshot
	if s == nil || s.Item == nil {
		b.WriteString(styles.help.Render("Nothing playing"))
		b.WriteString("\n")
	} else {
		state := "▶"
		if !s.IsPlaying {
			state = "⏸"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", state, styles.ok.Render(s.Item.Name)))
		b.WriteString(fmt.Sprintf("  %s", s.Item.ArtistNames()))
		if s.Item.Album != "" {
			b.WriteString(fmt.Sprintf(" • %s", s.Item.Album))
		}
		b.WriteString("\n\n")
		b.WriteString(renderProgress(m.progressMS, s.DurationMS()))
		b.WriteString("\n\n")
		b.WriteString(m.renderModes(s))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(styles.help.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderModes(s *models.Snapshot) string {
	device := s.Device.Name
	if device == "" {
		device = "unknown device"
	}
	where := "remote"
	if m.local {
		where = "local"
	}

	shuffle := "off"
	if s.Shuffle {
		shuffle = "on"
	}

	return fmt.Sprintf("%s (%s) • vol %d%% • shuffle %s • repeat %s",
		device, where, s.Device.VolumePercent, shuffle, s.Repeat)
}

// renderProgress draws "m:ss [bar] m:ss" for position out of duration.
func renderProgress(position, duration int) string {
	filled := 0
	if duration > 0 {
		filled = min(max(position*progressBarW/duration, 0), progressBarW)
	}
	bar := styles.bar.Render(strings.Repeat("━", filled)) + strings.Repeat("─", progressBarW-filled)
	return fmt.Sprintf("%s %s %s", shared.FormatDuration(position), bar, shared.FormatDuration(duration))
}

func (m *Model) renderLibrary() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Loading Saved Tracks")

	var phase string
	if m.progress.Total > 0 {
		phase = fmt.Sprintf("%d/%d", m.progress.Step, m.progress.Total)
	} else {
		phase = "Validating cache..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}
