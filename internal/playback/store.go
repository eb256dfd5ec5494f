package playback

import (
	"sync"
	"time"

	"github.com/desertthunder/spindle/internal/models"
)

// DefaultSuppressionWindow is how long remote updates are ignored after a local action.
const DefaultSuppressionWindow = 2000 * time.Millisecond

// Source identifies who produced a snapshot passed to [Store.Apply].
type Source int

const (
	// SourceRemote snapshots come from the poller and are gated by the suppression window.
	SourceRemote Source = iota
	// SourceLocal snapshots come from the local engine and always apply.
	SourceLocal
	// SourceCommand snapshots are re-fetched after a user command and always apply.
	SourceCommand
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceLocal:
		return "local"
	case SourceCommand:
		return "command"
	default:
		return ""
	}
}

// Store owns the authoritative playback snapshot and the suppression window.
type Store struct {
	mu           sync.RWMutex
	snapshot     *models.Snapshot
	suppressedAt time.Time

	window    time.Duration
	now       func() time.Time
	estimator *Estimator
	events    *Broadcaster
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithClock replaces the wall clock used for capture times, suppression and estimates.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithSuppressionWindow sets the suppression window length.
func WithSuppressionWindow(d time.Duration) StoreOption {
	return func(s *Store) { s.window = d }
}

// WithBroadcaster publishes the store's events on b.
func WithBroadcaster(b *Broadcaster) StoreOption {
	return func(s *Store) { s.events = b }
}

// NewStore creates an empty [Store].
func NewStore(opts ...StoreOption) *Store {
	s := &Store{window: DefaultSuppressionWindow, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = NewBroadcaster(16)
	}
	s.estimator = NewEstimator(s.now)
	return s
}

// Events returns the broadcaster notifications are published on.
func (s *Store) Events() *Broadcaster {
	return s.events
}

// Get returns a copy of the current snapshot, or false if none has been captured yet.
func (s *Store) Get() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return models.Snapshot{}, false
	}
	return s.snapshot.Clone(), true
}

// Apply replaces the current snapshot, stamping it with the current time.
//
// Remote snapshots are discarded while the suppression window is active.
// Reports whether the snapshot was applied.
func (s *Store) Apply(snapshot models.Snapshot, source Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source == SourceRemote && s.suppressedLocked() {
		return false
	}

	next := snapshot.Clone()
	next.CapturedAt = s.now()
	s.snapshot = &next
	s.publishLocked()
	return true
}

// ApplyLocal applies a snapshot from the local engine and arms the suppression window
// under one lock, so no remote snapshot can land between the two.
func (s *Store) ApplyLocal(snapshot models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := snapshot.Clone()
	next.CapturedAt = s.now()
	s.snapshot = &next
	s.suppressedAt = next.CapturedAt
	s.publishLocked()
}

// Patch replaces the current snapshot with a copy modified by fn, keeping its capture time.
//
// Used for optimistic writes ahead of a command; reports false when there is no snapshot to patch.
func (s *Store) Patch(fn func(*models.Snapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return false
	}

	next := s.snapshot.Clone()
	fn(&next)
	next.CapturedAt = s.snapshot.CapturedAt
	s.snapshot = &next
	s.publishLocked()
	return true
}

// ArmSuppression restarts the suppression window at the current time.
func (s *Store) ArmSuppression() {
	s.mu.Lock()
	s.suppressedAt = s.now()
	s.mu.Unlock()
}

// IsSuppressed reports whether remote updates are currently ignored.
func (s *Store) IsSuppressed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suppressedLocked()
}

func (s *Store) suppressedLocked() bool {
	if s.suppressedAt.IsZero() {
		return false
	}
	return s.now().Sub(s.suppressedAt) < s.window
}

// Progress returns the estimated position of the current snapshot, or 0 without one.
func (s *Store) Progress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.estimator.Estimate(s.snapshot)
}

// PublishProgress emits an [EventProgressChanged] carrying the current estimate.
func (s *Store) PublishProgress() {
	s.events.Publish(Event{Kind: EventProgressChanged, ProgressMS: s.Progress()})
}

// publishLocked emits the state and progress notifications for the current snapshot.
func (s *Store) publishLocked() {
	snap := s.snapshot.Clone()
	s.events.Publish(Event{Kind: EventStateChanged, Snapshot: &snap})
	s.events.Publish(Event{Kind: EventProgressChanged, ProgressMS: s.estimator.Estimate(s.snapshot)})
}
