package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/formatter"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/tasks"
	"github.com/urfave/cli/v3"
)

// printProgress writes progress updates until the channel is closed, then closes done.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
		r.writePlain("→ %s\n", update.Message)
	}
}

// withLibrary opens the library engine, runs fn with a progress channel and releases storage afterwards.
func (r *Runner) withLibrary(ctx context.Context, fn func(context.Context, *tasks.LibraryEngine, chan<- tasks.ProgressUpdate) error) error {
	engine, closeFn, err := r.library()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			r.logger.Warn("failed to close storage", "error", err)
		}
	}()

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	err = fn(ctx, engine, progress)
	close(progress)
	<-done
	return err
}

// LibrarySync loads the saved tracks from the first valid tier and reports where they came from.
func (r *Runner) LibrarySync(ctx context.Context, cmd *cli.Command) error {
	return r.withLibrary(ctx, func(ctx context.Context, engine *tasks.LibraryEngine, progress chan<- tasks.ProgressUpdate) error {
		result, err := engine.Sync(ctx, progress)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrSyncFailed, err)
		}

		r.logger.Infof("library synced: %d tracks from %s in %s", len(result.Tracks), result.Tier, result.Duration)
		return r.writePlain("✓ %d saved tracks (%s, %s)\n", len(result.Tracks), result.Tier, result.Duration.Round(time.Millisecond))
	})
}

// LibraryCount compares the remote total with the stored count.
func (r *Runner) LibraryCount(ctx context.Context, cmd *cli.Command) error {
	return r.withLibrary(ctx, func(ctx context.Context, engine *tasks.LibraryEngine, _ chan<- tasks.ProgressUpdate) error {
		result, err := engine.Count(ctx)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{
				"remote":  result.Remote,
				"stored":  result.Stored,
				"in_sync": result.InSync(),
			}, cmd.Bool("pretty"))
		}

		r.writePlain("Remote: %d\n", result.Remote)
		r.writePlain("Stored: %d\n", result.Stored)
		if result.InSync() {
			return r.writePlain("✓ Storage is up to date\n")
		}
		return r.writePlain("⚠ Storage is stale, run 'spindle library sync'\n")
	})
}

// LibrarySearch fuzzy searches the saved tracks.
func (r *Runner) LibrarySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")

	return r.withLibrary(ctx, func(ctx context.Context, engine *tasks.LibraryEngine, progress chan<- tasks.ProgressUpdate) error {
		results, err := engine.Search(ctx, query, cmd.Int("limit"), progress)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			tracks := make([]any, len(results))
			for i, res := range results {
				tracks[i] = res.Track
			}
			return r.writeJSON(tracks, cmd.Bool("pretty"))
		}

		if len(results) == 0 {
			return r.writePlain("No matches for %q\n", query)
		}

		for i, res := range results {
			r.writePlain("%d. %s - %s\n", i+1, res.Track.Artists, res.Track.Name)
			r.writePlain("   %s • %s • %s\n", res.Track.Album, shared.FormatDuration(res.Track.DurationMS), res.Track.URI)
		}
		return nil
	})
}

// LibraryExport writes the saved tracks to a file.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withLibrary(ctx, func(ctx context.Context, engine *tasks.LibraryEngine, progress chan<- tasks.ProgressUpdate) error {
		path, err := engine.Export(ctx, cmd.String("output"), format, progress)
		if err != nil {
			return err
		}
		r.logger.Info("library exported", "path", path, "format", format)
		return nil
	})
}
