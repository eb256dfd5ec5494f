// package tasks implements library operations over the tiered saved-track cache.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/cache"
	"github.com/desertthunder/spindle/internal/formatter"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/repositories"
	"github.com/sahilm/fuzzy"
)

// SyncResult describes one completed library load.
type SyncResult struct {
	Tracks   []models.SavedTrack
	Tier     cache.Tier
	Duration time.Duration
}

// CountResult compares the remote collection size with durable storage.
type CountResult struct {
	Remote int
	Stored int
}

// InSync reports whether storage matches the remote total.
func (c CountResult) InSync() bool {
	return cache.IsValid(c.Remote, c.Stored)
}

// SearchResult is a fuzzy match. MatchedIndexes index into "name artists album".
type SearchResult struct {
	Track          models.FlatSavedTrack
	MatchedIndexes []int
	Score          int
}

// Counter reports remote and stored collection sizes.
type Counter interface {
	RemoteCount(ctx context.Context) (int, error)
	StoredCount(ctx context.Context) (int, error)
}

// RunRecorder persists sync history.
type RunRecorder interface {
	Create(ctx context.Context, run *repositories.SyncRun) error
}

// LibraryEngine runs library operations over a saved-track [cache.Provider].
type LibraryEngine struct {
	provider *cache.Provider[models.SavedTrack]
	counter  Counter
	runs     RunRecorder
	logger   *log.Logger
}

// NewLibraryEngine creates a [LibraryEngine]. runs may be nil to skip sync history.
func NewLibraryEngine(provider *cache.Provider[models.SavedTrack], counter Counter, runs RunRecorder, logger *log.Logger) *LibraryEngine {
	return &LibraryEngine{provider: provider, counter: counter, runs: runs, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Sync loads the saved-track collection from the first valid tier.
func (e *LibraryEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error) {
	start := time.Now()

	tracks, tier, err := e.provider.Load(ctx, func(done, total int) {
		e.sendProgress(progress, loadingUpdate(done, total))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load saved tracks: %w", err)
	}

	e.sendProgress(progress, loadedUpdate(len(tracks), tier))
	e.record(ctx, tier, len(tracks))

	return &SyncResult{Tracks: tracks, Tier: tier, Duration: time.Since(start)}, nil
}

// record keeps history for storage and remote loads.
func (e *LibraryEngine) record(ctx context.Context, tier cache.Tier, count int) {
	if e.runs == nil || (tier != cache.TierStorage && tier != cache.TierRemote) {
		return
	}
	run := &repositories.SyncRun{Store: cache.SavedTracksStore, Tier: tier.String(), ItemCount: count}
	if err := e.runs.Create(ctx, run); err != nil {
		e.logger.Warn("failed to record sync run", "error", err)
	}
}

// Count returns the remote total and the stored count.
func (e *LibraryEngine) Count(ctx context.Context) (*CountResult, error) {
	remote, err := e.counter.RemoteCount(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := e.counter.StoredCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stored tracks: %w", err)
	}

	return &CountResult{Remote: remote, Stored: stored}, nil
}

// trackIndex implements [fuzzy.Source] over flattened tracks.
type trackIndex struct {
	tracks []models.FlatSavedTrack
	keys   []string
}

func newTrackIndex(tracks []models.FlatSavedTrack) *trackIndex {
	keys := make([]string, len(tracks))
	for i, t := range tracks {
		keys[i] = strings.ToLower(t.Name + " " + t.Artists + " " + t.Album)
	}
	return &trackIndex{tracks: tracks, keys: keys}
}

func (idx *trackIndex) String(i int) string { return idx.keys[i] }
func (idx *trackIndex) Len() int            { return len(idx.tracks) }

// Search fuzzy matches query against track name, artists and album, best match first.
//
// An empty query returns the collection in order. limit <= 0 returns every match.
func (e *LibraryEngine) Search(ctx context.Context, query string, limit int, progress chan<- ProgressUpdate) ([]SearchResult, error) {
	result, err := e.Sync(ctx, progress)
	if err != nil {
		return nil, err
	}

	idx := newTrackIndex(models.FlattenAll(result.Tracks))
	query = strings.ToLower(strings.TrimSpace(query))

	var results []SearchResult
	if query == "" {
		for _, t := range idx.tracks {
			results = append(results, SearchResult{Track: t})
		}
	} else {
		for _, m := range fuzzy.FindFrom(query, idx) {
			results = append(results, SearchResult{
				Track:          idx.tracks[m.Index],
				MatchedIndexes: m.MatchedIndexes,
				Score:          m.Score,
			})
		}
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	e.sendProgress(progress, searchUpdate(query, len(results)))
	return results, nil
}

// Export writes the collection to path in format and returns the written path.
func (e *LibraryEngine) Export(ctx context.Context, path string, format formatter.Format, progress chan<- ProgressUpdate) (string, error) {
	result, err := e.Sync(ctx, progress)
	if err != nil {
		return "", err
	}

	flat := models.FlattenAll(result.Tracks)
	written, err := formatter.WriteExport(path, format, "Saved Tracks", flat)
	if err != nil {
		return "", err
	}

	e.sendProgress(progress, exportUpdate(written, len(flat)))
	return written, nil
}
