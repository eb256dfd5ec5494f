package cache

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/shared"
)

// Tier identifies where a collection was served from.
type Tier int

const (
	TierNone Tier = iota
	TierMemory
	TierStorage
	TierRemote
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierStorage:
		return "storage"
	case TierRemote:
		return "remote"
	default:
		return "none"
	}
}

// Source describes the tiers of one collection.
type Source[T any] interface {
	// MemoryValid reports whether items, the last completed retrieval, are still current.
	MemoryValid(ctx context.Context, items []T) (bool, error)
	// StorageValid reports whether durable storage is current.
	StorageValid(ctx context.Context) (bool, error)
	ClearStorage(ctx context.Context) error
	LoadStorage(ctx context.Context, progress ProgressFunc) ([]T, error)
	// LoadRemote downloads the collection, persisting it as it arrives.
	LoadRemote(ctx context.Context, progress ProgressFunc) ([]T, error)
}

// retrieval is one storage or remote fetch. Its fields are written once, before done is closed.
type retrieval[T any] struct {
	id    string
	done  chan struct{}
	items []T
	tier  Tier
	err   error
}

func (r *retrieval[T]) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *retrieval[T]) wait(ctx context.Context) ([]T, Tier, error) {
	select {
	case <-r.done:
		return r.items, r.tier, r.err
	case <-ctx.Done():
		return nil, TierNone, ctx.Err()
	}
}

// Provider serves a collection from memory, storage or remote, in that order.
//
// At most one storage or remote fetch runs at a time; concurrent callers wait for it
// and share its result.
type Provider[T any] struct {
	source Source[T]
	logger *log.Logger

	mu     sync.Mutex
	handle *retrieval[T]
}

// NewProvider creates a [Provider] over source.
func NewProvider[T any](source Source[T], logger *log.Logger) *Provider[T] {
	return &Provider[T]{source: source, logger: logger}
}

// GetData returns the collection from the first valid tier.
func (p *Provider[T]) GetData(ctx context.Context, progress ProgressFunc) ([]T, error) {
	items, _, err := p.Load(ctx, progress)
	return items, err
}

// Load is [Provider.GetData] that also reports the tier that served the call.
//
// progress is only called by the caller that starts a fetch.
func (p *Provider[T]) Load(ctx context.Context, progress ProgressFunc) ([]T, Tier, error) {
	p.mu.Lock()
	current := p.handle
	p.mu.Unlock()

	if current != nil && !current.finished() {
		return current.wait(ctx)
	}

	if current != nil && current.err == nil {
		valid, err := p.source.MemoryValid(ctx, current.items)
		if err != nil {
			p.logger.Warn("memory validation failed, serving cached collection", "error", err)
			valid = true
		}
		if valid {
			return current.items, TierMemory, nil
		}
		p.logger.Debug("memory tier stale", "items", len(current.items))
	}

	p.mu.Lock()
	if p.handle != nil && p.handle != current {
		// another caller replaced the handle while this one validated
		next := p.handle
		p.mu.Unlock()
		return next.wait(ctx)
	}
	next := &retrieval[T]{id: shared.GenerateID(), done: make(chan struct{})}
	p.handle = next
	p.mu.Unlock()

	go p.fill(context.WithoutCancel(ctx), next, progress)
	return next.wait(ctx)
}

// fill runs the storage and remote tiers for r and then releases its waiters.
func (p *Provider[T]) fill(ctx context.Context, r *retrieval[T], progress ProgressFunc) {
	defer close(r.done)
	logger := p.logger.With("retrieval", r.id)

	valid, err := p.source.StorageValid(ctx)
	if err != nil {
		r.err = err
		logger.Error("storage validation failed", "error", err)
		return
	}

	if valid {
		items, err := p.source.LoadStorage(ctx, progress)
		if err != nil {
			r.err = err
			logger.Error("failed to load from storage", "error", err)
			return
		}
		if len(items) > 0 {
			r.items, r.tier = items, TierStorage
			logger.Debug("served from storage", "items", len(items))
			return
		}
	} else {
		logger.Info("storage tier stale, clearing")
		if err := p.source.ClearStorage(ctx); err != nil {
			r.err = err
			logger.Error("failed to clear storage", "error", err)
			return
		}
	}

	items, err := p.source.LoadRemote(ctx, progress)
	if err != nil {
		r.err = err
		logger.Error("remote download failed", "error", err)
		return
	}
	r.items, r.tier = items, TierRemote
	logger.Info("downloaded from remote", "items", len(items))
}

// Invalidate drops the memory tier. A fetch already in flight still completes for its waiters.
func (p *Provider[T]) Invalidate() {
	p.mu.Lock()
	if p.handle != nil && p.handle.finished() {
		p.handle = nil
	}
	p.mu.Unlock()
}
