package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive now-playing view.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	session, err := r.session()
	if err != nil {
		return err
	}

	engine, closeFn, err := r.library()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ctx, session.Store, session.Dispatcher, engine)
	defer model.Close()

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	if err := <-done; err != nil {
		r.logger.Warn("playback session stopped with error", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return nil
}
