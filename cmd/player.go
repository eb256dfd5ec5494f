package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/playback"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlayerStatus fetches and prints the current playback state.
func (r *Runner) PlayerStatus(ctx context.Context, cmd *cli.Command) error {
	session, err := r.session()
	if err != nil {
		return err
	}

	session.Poller.Poll(ctx)
	snapshot, ok := session.Store.Get()

	if cmd.Bool("json") {
		if !ok {
			return r.writeJSON(nil, cmd.Bool("pretty"))
		}
		return r.writeJSON(snapshot, cmd.Bool("pretty"))
	}

	if !ok {
		return r.writePlain("Nothing playing\n")
	}
	return r.writeSnapshot(snapshot, session.Store.Progress())
}

// PlayerWatch runs the playback session and prints its events until interrupted or the --for duration passes.
func (r *Runner) PlayerWatch(ctx context.Context, cmd *cli.Command) error {
	session, err := r.session()
	if err != nil {
		return err
	}

	if d := cmd.Duration("for"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	events, unsubscribe := session.Store.Events().Subscribe()
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	showProgress := cmd.Bool("progress")
	for ev := range events {
		switch ev.Kind {
		case playback.EventStateChanged:
			if ev.Snapshot != nil {
				r.writeSnapshot(*ev.Snapshot, ev.Snapshot.ProgressMS)
			}
		case playback.EventLocalityChanged:
			r.writePlain("locality: %s\n", localityName(ev.Local))
		case playback.EventProgressChanged:
			if showProgress {
				r.writePlain("\r%s", shared.FormatDuration(ev.ProgressMS))
			}
		}
	}
	return <-done
}

func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	uri := cmd.StringArg("uri")
	if uri == "" {
		return r.dispatch(ctx, "play", func(ctx context.Context, d *playback.Dispatcher) error {
			return d.Play(ctx)
		})
	}

	offset := cmd.String("offset")
	if strings.HasPrefix(uri, "spotify:track:") && offset == "" {
		return r.dispatch(ctx, "play", func(ctx context.Context, d *playback.Dispatcher) error {
			return d.PlayTracks(ctx, []string{uri})
		})
	}
	return r.dispatch(ctx, "play", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.PlayContext(ctx, uri, offset)
	})
}

func (r *Runner) PlayerPause(ctx context.Context, cmd *cli.Command) error {
	return r.dispatch(ctx, "pause", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.Pause(ctx)
	})
}

func (r *Runner) PlayerNext(ctx context.Context, cmd *cli.Command) error {
	return r.dispatch(ctx, "next", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.Next(ctx)
	})
}

func (r *Runner) PlayerPrevious(ctx context.Context, cmd *cli.Command) error {
	return r.dispatch(ctx, "previous", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.Previous(ctx)
	})
}

func (r *Runner) PlayerSeek(ctx context.Context, cmd *cli.Command) error {
	positionMS, err := parsePosition(cmd.StringArg("position"))
	if err != nil {
		return err
	}
	return r.dispatch(ctx, "seek", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.Seek(ctx, positionMS)
	})
}

func (r *Runner) PlayerShuffle(ctx context.Context, cmd *cli.Command) error {
	state, err := parseToggle(cmd.StringArg("state"))
	if err != nil {
		return err
	}
	return r.dispatch(ctx, "shuffle", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.SetShuffle(ctx, state)
	})
}

func (r *Runner) PlayerRepeat(ctx context.Context, cmd *cli.Command) error {
	mode, err := models.ParseRepeatMode(cmd.StringArg("mode"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return r.dispatch(ctx, "repeat", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.SetRepeat(ctx, mode)
	})
}

func (r *Runner) PlayerVolume(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("percent")
	percent, err := strconv.Atoi(strings.TrimSuffix(arg, "%"))
	if err != nil {
		return fmt.Errorf("%w: volume %q is not a number", shared.ErrInvalidArgument, arg)
	}
	return r.dispatch(ctx, "volume", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.SetVolume(ctx, percent)
	})
}

// PlayerDevices lists the devices available for playback.
func (r *Runner) PlayerDevices(ctx context.Context, cmd *cli.Command) error {
	session, err := r.session()
	if err != nil {
		return err
	}

	devices, err := session.Dispatcher.Devices(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, cmd.Bool("pretty"))
	}

	if len(devices) == 0 {
		return r.writePlain("No devices available\n")
	}

	r.writePlain("Found %d devices:\n\n", len(devices))
	for i, d := range devices {
		marker := " "
		if d.IsActive {
			marker = "*"
		}
		r.writePlain("%s %d. %s (%s)\n", marker, i+1, d.Name, d.Type)
		r.writePlain("     ID: %s\n", d.ID)
		if d.SupportsVolume {
			r.writePlain("     Volume: %d%%\n", d.VolumePercent)
		}
	}
	return nil
}

func (r *Runner) PlayerTransfer(ctx context.Context, cmd *cli.Command) error {
	deviceID := cmd.StringArg("device")
	if deviceID == "" {
		return fmt.Errorf("%w: device id", shared.ErrMissingArgument)
	}
	return r.dispatch(ctx, "transfer", func(ctx context.Context, d *playback.Dispatcher) error {
		return d.TransferPlayback(ctx, deviceID, cmd.Bool("play"))
	})
}

// dispatch runs one command through a fresh session and prints the reconciled state.
func (r *Runner) dispatch(ctx context.Context, name string, fn func(context.Context, *playback.Dispatcher) error) error {
	session, err := r.session()
	if err != nil {
		return err
	}

	r.logger.Debug("dispatching command", "command", name)
	if err := fn(ctx, session.Dispatcher); err != nil {
		return err
	}

	r.writePlain("✓ %s\n", name)
	if snapshot, ok := session.Store.Get(); ok {
		return r.writeSnapshot(snapshot, session.Store.Progress())
	}
	return nil
}

func (r *Runner) writeSnapshot(s models.Snapshot, positionMS int) error {
	state := "⏸"
	if s.IsPlaying {
		state = "▶"
	}

	if s.Item == nil {
		r.writePlain("%s Nothing playing\n", state)
	} else {
		r.writePlain("%s %s\n", state, s.Item.Name)
		r.writePlain("  %s - %s\n", s.Item.ArtistNames(), s.Item.Album)
		r.writePlain("  %s / %s\n", shared.FormatDuration(positionMS), shared.FormatDuration(s.DurationMS()))
	}

	shuffle := "off"
	if s.Shuffle {
		shuffle = "on"
	}
	return r.writePlain("  %s • vol %d%% • shuffle %s • repeat %s\n",
		s.Device.Name, s.Device.VolumePercent, shuffle, s.Repeat)
}

func localityName(local bool) string {
	if local {
		return "local"
	}
	return "remote"
}

// parsePosition accepts m:ss, a Go duration such as 1m30s, or plain seconds.
func parsePosition(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("%w: position", shared.ErrMissingArgument)
	}

	var d time.Duration
	if mins, secs, ok := strings.Cut(arg, ":"); ok {
		m, errM := strconv.Atoi(mins)
		s, errS := strconv.Atoi(secs)
		if errM != nil || errS != nil || s >= 60 {
			return 0, fmt.Errorf("%w: position %q", shared.ErrInvalidArgument, arg)
		}
		d = time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	} else if secs, err := strconv.Atoi(arg); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		parsed, err := time.ParseDuration(arg)
		if err != nil {
			return 0, fmt.Errorf("%w: position %q", shared.ErrInvalidArgument, arg)
		}
		d = parsed
	}

	if d < 0 {
		return 0, fmt.Errorf("%w: position %q is negative", shared.ErrInvalidArgument, arg)
	}
	return int(d.Milliseconds()), nil
}

func parseToggle(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected on or off, got %q", shared.ErrInvalidArgument, arg)
	}
}
