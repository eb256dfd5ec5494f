package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/services"
	"github.com/desertthunder/spindle/internal/shared"
)

// DefaultSettleDelay is how long to wait after a remote command before re-fetching state.
const DefaultSettleDelay = 200 * time.Millisecond

// Locality reports where commands should run.
type Locality interface {
	IsLocal() bool
	Engine() LocalEngine
}

// Dispatcher routes playback commands to the local engine or the remote API and
// reconciles the [Store] afterwards.
//
// Local commands arm suppression and rely on the engine's follow-up event. Remote
// commands wait for the settle delay, re-fetch and apply the result regardless of
// suppression.
type Dispatcher struct {
	store    *Store
	remote   services.PlayerAPI
	locality Locality
	settle   time.Duration
	logger   *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a [Dispatcher]. A negative settle delay selects [DefaultSettleDelay].
func NewDispatcher(store *Store, remote services.PlayerAPI, locality Locality, settle time.Duration, logger *log.Logger) *Dispatcher {
	if settle < 0 {
		settle = DefaultSettleDelay
	}
	return &Dispatcher{
		store:    store,
		remote:   remote,
		locality: locality,
		settle:   settle,
		logger:   logger,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type localCommand func(ctx context.Context, engine LocalEngine) error
type remoteCommand func(ctx context.Context) error

// dispatch runs local on the engine when playback is local, and remote otherwise.
// A nil local command always goes remote.
func (d *Dispatcher) dispatch(ctx context.Context, name string, local localCommand, remote remoteCommand) error {
	if local != nil && d.locality != nil && d.locality.IsLocal() {
		if engine := d.locality.Engine(); engine != nil {
			if err := local(ctx, engine); err != nil {
				return fmt.Errorf("%w: %s: %w", shared.ErrCommandFailed, name, err)
			}
			d.store.ArmSuppression()
			d.logger.Debug("local command", "command", name)
			return nil
		}
	}

	if err := remote(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrCommandFailed, name, err)
	}
	d.logger.Debug("remote command", "command", name)
	d.reconcile(ctx)
	return nil
}

// reconcile waits for the settle delay and applies a fresh remote snapshot.
//
// Failures are logged; the next poll corrects the store.
func (d *Dispatcher) reconcile(ctx context.Context) {
	if err := d.sleep(ctx, d.settle); err != nil {
		return
	}

	snapshot, err := d.remote.PlaybackState(ctx)
	if err != nil {
		d.logger.Warn("failed to refresh state after command", "error", err)
		return
	}
	if snapshot != nil {
		d.store.Apply(*snapshot, SourceCommand)
	}
}

func (d *Dispatcher) Play(ctx context.Context) error {
	return d.dispatch(ctx, "play",
		func(ctx context.Context, e LocalEngine) error { return e.Play(ctx) },
		d.remote.Play)
}

func (d *Dispatcher) Pause(ctx context.Context) error {
	return d.dispatch(ctx, "pause",
		func(ctx context.Context, e LocalEngine) error { return e.Pause(ctx) },
		d.remote.Pause)
}

func (d *Dispatcher) Next(ctx context.Context) error {
	return d.dispatch(ctx, "next",
		func(ctx context.Context, e LocalEngine) error { return e.Next(ctx) },
		d.remote.Next)
}

func (d *Dispatcher) Previous(ctx context.Context) error {
	return d.dispatch(ctx, "previous",
		func(ctx context.Context, e LocalEngine) error { return e.Previous(ctx) },
		d.remote.Previous)
}

// Seek moves the playhead to positionMS.
func (d *Dispatcher) Seek(ctx context.Context, positionMS int) error {
	return d.dispatch(ctx, "seek",
		func(ctx context.Context, e LocalEngine) error { return e.Seek(ctx, positionMS) },
		func(ctx context.Context) error { return d.remote.Seek(ctx, positionMS) })
}

// SetShuffle writes the flag into the current snapshot and then sets it remotely.
func (d *Dispatcher) SetShuffle(ctx context.Context, state bool) error {
	d.store.Patch(func(s *models.Snapshot) { s.Shuffle = state })
	return d.dispatch(ctx, "shuffle", nil,
		func(ctx context.Context) error { return d.remote.SetShuffle(ctx, state) })
}

// SetRepeat writes the mode into the current snapshot and then sets it remotely.
func (d *Dispatcher) SetRepeat(ctx context.Context, mode models.RepeatMode) error {
	d.store.Patch(func(s *models.Snapshot) { s.Repeat = mode })
	return d.dispatch(ctx, "repeat", nil,
		func(ctx context.Context) error { return d.remote.SetRepeat(ctx, mode) })
}

// SetVolume writes the volume into the current snapshot and then dispatches it.
func (d *Dispatcher) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume: %w: %d out of range 0-100", shared.ErrCommandFailed, shared.ErrInvalidArgument, percent)
	}

	d.store.Patch(func(s *models.Snapshot) { s.Device.VolumePercent = percent })
	return d.dispatch(ctx, "volume",
		func(ctx context.Context, e LocalEngine) error { return e.SetVolume(ctx, percent) },
		func(ctx context.Context) error { return d.remote.SetVolume(ctx, percent) })
}

// PlayContext starts contextURI remotely, at offsetURI when given.
func (d *Dispatcher) PlayContext(ctx context.Context, contextURI, offsetURI string) error {
	return d.dispatch(ctx, "play context", nil,
		func(ctx context.Context) error { return d.remote.PlayContext(ctx, contextURI, offsetURI) })
}

// PlayTracks starts an explicit list of tracks remotely.
func (d *Dispatcher) PlayTracks(ctx context.Context, uris []string) error {
	return d.dispatch(ctx, "play tracks", nil,
		func(ctx context.Context) error { return d.remote.PlayTracks(ctx, uris) })
}

// TransferPlayback moves playback to deviceID.
func (d *Dispatcher) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	return d.dispatch(ctx, "transfer", nil,
		func(ctx context.Context) error { return d.remote.TransferPlayback(ctx, deviceID, play) })
}

// Devices lists the available playback devices.
func (d *Dispatcher) Devices(ctx context.Context) ([]models.Device, error) {
	devices, err := d.remote.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: devices: %w", shared.ErrCommandFailed, err)
	}
	return devices, nil
}
