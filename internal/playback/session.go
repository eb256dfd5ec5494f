package playback

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/services"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Session wires the store, poller, progress clock, local adapter and dispatcher for one remote account.
type Session struct {
	Store      *Store
	Poller     *Poller
	Clock      *ProgressClock
	Local      *LocalAdapter
	Dispatcher *Dispatcher
}

// NewSession builds a [Session] from the playback configuration.
func NewSession(api services.PlayerAPI, cfg shared.PlaybackConfig, logger *log.Logger) *Session {
	store := NewStore(WithSuppressionWindow(windowOrDefault(cfg)))
	local := NewLocalAdapter(store, api, shared.WithLogger(logger, "component", "local"))

	return &Session{
		Store:      store,
		Poller:     NewPoller(api, store, cfg.PollInterval.Duration, shared.WithLogger(logger, "component", "poller")),
		Clock:      NewProgressClock(store, cfg.ProgressInterval.Duration),
		Local:      local,
		Dispatcher: NewDispatcher(store, api, local, cfg.SettleDelay.Duration, shared.WithLogger(logger, "component", "dispatcher")),
	}
}

func windowOrDefault(cfg shared.PlaybackConfig) time.Duration {
	if cfg.SuppressionWindow.Duration <= 0 {
		return DefaultSuppressionWindow
	}
	return cfg.SuppressionWindow.Duration
}

// Run starts the poller, the progress clock and the locality watcher, blocking until ctx is done.
//
// The store's broadcaster is closed on return.
func (s *Session) Run(ctx context.Context) error {
	defer s.Store.Events().Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Poller.Run(ctx) })
	g.Go(func() error { return s.Clock.Run(ctx) })
	g.Go(func() error { return s.Local.Watch(ctx) })
	return g.Wait()
}
