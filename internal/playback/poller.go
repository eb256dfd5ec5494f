package playback

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
)

const (
	DefaultPollInterval     = 1000 * time.Millisecond
	DefaultProgressInterval = 33 * time.Millisecond
)

// StateFetcher retrieves the remote playback state.
type StateFetcher interface {
	PlaybackState(ctx context.Context) (*models.Snapshot, error)
}

// Poller periodically applies the remote playback state to a [Store].
type Poller struct {
	api      StateFetcher
	store    *Store
	interval time.Duration
	logger   *log.Logger
}

// NewPoller creates a [Poller]. A non-positive interval selects [DefaultPollInterval].
func NewPoller(api StateFetcher, store *Store, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{api: api, store: store, interval: interval, logger: logger}
}

// Poll fetches the remote state once and offers it to the store.
//
// The fetch is issued even while suppressed; only the apply is gated. Fetch errors
// are logged and skip the cycle. Reports whether the store accepted the snapshot.
func (p *Poller) Poll(ctx context.Context) bool {
	snapshot, err := p.api.PlaybackState(ctx)
	if err != nil {
		p.logger.Debug("remote poll failed", "error", err)
		return false
	}
	if snapshot == nil {
		p.logger.Debug("no active playback")
		return false
	}

	applied := p.store.Apply(*snapshot, SourceRemote)
	if !applied {
		p.logger.Debug("remote update suppressed")
	}
	return applied
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// ProgressClock publishes the estimated position at a fixed cadence.
type ProgressClock struct {
	store    *Store
	interval time.Duration
}

// NewProgressClock creates a [ProgressClock]. A non-positive interval selects [DefaultProgressInterval].
func NewProgressClock(store *Store, interval time.Duration) *ProgressClock {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ProgressClock{store: store, interval: interval}
}

// Run publishes progress on every tick until ctx is done.
func (c *ProgressClock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.store.PublishProgress()
		}
	}
}
