package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/cache"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/playback"
	"github.com/desertthunder/spindle/internal/repositories"
	"github.com/desertthunder/spindle/internal/services"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SpotifyClient is the remote API the commands talk to.
type SpotifyClient interface {
	services.PlayerAPI
	services.LibraryAPI
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    SpotifyClient
	logger     *log.Logger
	output     io.Writer

	outMu   sync.Mutex
	tokenMu sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    SpotifyClient
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playerCommand, libraryCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized, run 'spindle auth' first", shared.ErrServiceUnavailable)
	}
	return nil
}

// session builds the playback session for the configured account.
func (r *Runner) session() (*playback.Session, error) {
	if err := r.requireSpotify(); err != nil {
		return nil, err
	}
	return playback.NewSession(r.spotify, r.config.Playback, r.logger), nil
}

// library opens durable storage for the configured driver and builds the library engine over it.
//
// The returned close function releases the storage.
func (r *Runner) library() (*tasks.LibraryEngine, func() error, error) {
	if err := r.requireSpotify(); err != nil {
		return nil, nil, err
	}

	storage, runs, closeFn, err := r.openStorage()
	if err != nil {
		return nil, nil, err
	}

	provider, source := cache.NewSavedTrackProvider(r.spotify, storage, r.config.Library, r.logger)
	return tasks.NewLibraryEngine(provider, source, runs, shared.WithLogger(r.logger, "component", "library")), closeFn, nil
}

// openStorage opens the saved-track record store. Sync history is only kept by the sqlite driver.
func (r *Runner) openStorage() (cache.Storage[models.SavedTrack], tasks.RunRecorder, func() error, error) {
	cfg := r.config.Database

	switch cfg.Driver {
	case "bolt":
		db, err := repositories.OpenBolt(cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		r.logger.Debug("opened bolt storage", "path", cfg.Path)
		return repositories.NewBoltRecordStore[models.SavedTrack](db, models.SavedTrack.Key), nil, db.Close, nil
	case "sqlite", "":
		db, err := shared.NewDatabase(cfg.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Debug("opened sqlite storage", "path", cfg.Path)
		return repositories.NewRecordStore[models.SavedTrack](db, models.SavedTrack.Key), repositories.NewSyncRunRepository(db), db.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown database driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}

// saveTokens stores a newly issued token in the config and writes it to the config path, when set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	r.outMu.Lock()
	defer r.outMu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
