package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"golang.org/x/oauth2"
)

// LocalState is the state pushed by a [LocalEngine].
type LocalState struct {
	Paused     bool
	PositionMS int
	Shuffle    bool
	// RepeatMode is the engine's repeat tier: 0 off, 1 context, 2 track.
	RepeatMode int
	Context    *models.PlaybackContext
	Track      *models.Item
	// Device is the engine's device; a zero ID means the registered local device.
	Device models.Device
}

// LocalCallbacks are the notifications a [LocalEngine] delivers after initialization.
type LocalCallbacks struct {
	OnError        func(error)
	OnStateChanged func(*LocalState)
	OnDeviceReady  func(deviceID string)
}

// LocalEngine is a playback engine running in this process.
type LocalEngine interface {
	Initialize(ctx context.Context, tokens oauth2.TokenSource, callbacks LocalCallbacks) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMS int) error
	SetVolume(ctx context.Context, percent int) error
}

// Transferer moves playback to a device.
type Transferer interface {
	TransferPlayback(ctx context.Context, deviceID string, play bool) error
}

// LocalAdapter feeds local engine notifications into a [Store] and tracks whether the
// active device is the local engine's.
type LocalAdapter struct {
	store  *Store
	api    Transferer
	logger *log.Logger

	mu      sync.RWMutex
	engine  LocalEngine
	localID string
	local   bool
}

// NewLocalAdapter creates a [LocalAdapter] without an engine; it reports remote locality until one is attached.
func NewLocalAdapter(store *Store, api Transferer, logger *log.Logger) *LocalAdapter {
	return &LocalAdapter{store: store, api: api, logger: logger}
}

// Attach initializes engine with tokens and routes its notifications to the adapter.
func (a *LocalAdapter) Attach(ctx context.Context, engine LocalEngine, tokens oauth2.TokenSource) error {
	a.mu.Lock()
	a.engine = engine
	a.mu.Unlock()

	callbacks := LocalCallbacks{
		OnError: func(err error) {
			a.logger.Error("local engine error", "error", err)
		},
		OnStateChanged: func(ev *LocalState) {
			a.OnLocalStateChanged(ev)
		},
		OnDeviceReady: func(deviceID string) {
			if err := a.OnDeviceReady(context.WithoutCancel(ctx), deviceID); err != nil {
				a.logger.Error("failed to activate local device", "device", deviceID, "error", err)
			}
		},
	}

	if err := engine.Initialize(ctx, tokens, callbacks); err != nil {
		return fmt.Errorf("failed to initialize local engine: %w", err)
	}
	return nil
}

// Engine returns the attached engine, or nil.
func (a *LocalAdapter) Engine() LocalEngine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

// IsLocal reports whether the active device is the local engine's.
func (a *LocalAdapter) IsLocal() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.local
}

// LocalDeviceID returns the registered local device id, or "" before the engine is ready.
func (a *LocalAdapter) LocalDeviceID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.localID
}

// OnLocalStateChanged applies a snapshot built from ev and arms suppression.
//
// Events arriving before any snapshot exists are discarded. Reports whether ev was applied.
func (a *LocalAdapter) OnLocalStateChanged(ev *LocalState) bool {
	if ev == nil {
		return false
	}

	baseline, ok := a.store.Get()
	if !ok {
		a.logger.Debug("discarding local state without baseline")
		return false
	}

	a.store.ApplyLocal(a.snapshotFrom(ev, baseline))
	return true
}

// snapshotFrom builds a whole snapshot from ev. Only the device descriptor is carried
// over from baseline, and only when it describes the same device.
func (a *LocalAdapter) snapshotFrom(ev *LocalState, baseline models.Snapshot) models.Snapshot {
	device := ev.Device
	if device.ID == "" {
		device.ID = a.LocalDeviceID()
	}
	if device.Name == "" && baseline.Device.ID == device.ID {
		device = baseline.Device
	}

	repeat := models.RepeatMode(ev.RepeatMode)
	if repeat < models.RepeatOff || repeat > models.RepeatTrack {
		repeat = models.RepeatOff
	}

	snapshot := models.Snapshot{
		Device:     device,
		IsPlaying:  !ev.Paused,
		ProgressMS: ev.PositionMS,
		Shuffle:    ev.Shuffle,
		Repeat:     repeat,
	}
	if ev.Context != nil {
		ctx := *ev.Context
		snapshot.Context = &ctx
	}
	if ev.Track != nil {
		track := *ev.Track
		snapshot.Item = &track
	}
	return snapshot
}

// OnDeviceReady registers deviceID as the local device, transfers playback to it and marks locality local.
//
// Playback resumes on the new device only if it was playing before the transfer.
func (a *LocalAdapter) OnDeviceReady(ctx context.Context, deviceID string) error {
	a.mu.Lock()
	a.localID = deviceID
	a.mu.Unlock()

	current, _ := a.store.Get()
	if err := a.api.TransferPlayback(ctx, deviceID, current.IsPlaying); err != nil {
		return fmt.Errorf("failed to transfer playback to %s: %w", deviceID, err)
	}

	a.setLocal(true)
	return nil
}

// OnLocalityCheck compares the snapshot's device with the local device and updates locality.
// Snapshots without a device id are skipped.
//
// Reports whether locality changed.
func (a *LocalAdapter) OnLocalityCheck(snapshot *models.Snapshot) bool {
	if snapshot == nil || snapshot.Device.ID == "" {
		return false
	}

	localID := a.LocalDeviceID()
	return a.setLocal(localID != "" && snapshot.Device.ID == localID)
}

func (a *LocalAdapter) setLocal(local bool) bool {
	a.mu.Lock()
	changed := a.local != local
	a.local = local
	a.mu.Unlock()

	if !changed {
		return false
	}

	if local {
		a.logger.Info("Playback transferred back to local device.")
	} else {
		a.logger.Info("Playback transferred to remote device.")
	}
	a.store.Events().Publish(Event{Kind: EventLocalityChanged, Local: local})
	return true
}

// Watch checks locality on every state change published by the store until ctx is done.
func (a *LocalAdapter) Watch(ctx context.Context) error {
	events, cancel := a.store.Events().Subscribe()
	defer cancel()

	if current, ok := a.store.Get(); ok {
		a.OnLocalityCheck(&current)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind == EventStateChanged {
				a.OnLocalityCheck(ev.Snapshot)
			}
		}
	}
}
