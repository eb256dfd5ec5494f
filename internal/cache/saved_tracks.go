package cache

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/services"
	"github.com/desertthunder/spindle/internal/shared"
)

// SavedTracksStore is the record store holding the user's saved tracks.
const SavedTracksStore = "saved_tracks"

// SavedTracks is the [Source] for the user's saved-track collection.
type SavedTracks struct {
	api     services.LibraryAPI
	storage Storage[models.SavedTrack]
	sync    *Synchronizer[models.SavedTrack]
	logger  *log.Logger
}

// NewSavedTracks creates the saved-track [Source].
func NewSavedTracks(api services.LibraryAPI, storage Storage[models.SavedTrack], sync *Synchronizer[models.SavedTrack], logger *log.Logger) *SavedTracks {
	return &SavedTracks{api: api, storage: storage, sync: sync, logger: logger}
}

// NewSavedTrackProvider wires a [Provider] over the saved-track collection using the library configuration.
//
// The source is returned as well since it also reports the remote and stored counts.
func NewSavedTrackProvider(api services.LibraryAPI, storage Storage[models.SavedTrack], cfg shared.LibraryConfig, logger *log.Logger) (*Provider[models.SavedTrack], *SavedTracks) {
	sync := NewSynchronizer[models.SavedTrack](cfg.PageSize, cfg.PageDelay.Duration)
	source := NewSavedTracks(api, storage, sync, shared.WithLogger(logger, "store", SavedTracksStore))
	return NewProvider[models.SavedTrack](source, shared.WithLogger(logger, "component", "cache")), source
}

// RemoteCount returns the number of saved tracks reported by the remote API.
func (s *SavedTracks) RemoteCount(ctx context.Context) (int, error) {
	market, err := s.api.Market(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve market: %w", err)
	}

	page, err := s.api.SavedTracks(ctx, 0, 1, market)
	if err != nil {
		return 0, fmt.Errorf("failed to count saved tracks: %w", err)
	}
	return page.Total, nil
}

// StoredCount returns the number of saved tracks in durable storage.
func (s *SavedTracks) StoredCount(ctx context.Context) (int, error) {
	return s.storage.Count(ctx, SavedTracksStore)
}

func (s *SavedTracks) MemoryValid(ctx context.Context, items []models.SavedTrack) (bool, error) {
	expected, err := s.RemoteCount(ctx)
	if err != nil {
		return false, err
	}
	return IsValid(expected, len(items)), nil
}

func (s *SavedTracks) StorageValid(ctx context.Context) (bool, error) {
	expected, err := s.RemoteCount(ctx)
	if err != nil {
		return false, err
	}

	cached, err := s.StoredCount(ctx)
	if err != nil {
		return false, err
	}

	s.logger.Debug("validating storage", "remote", expected, "stored", cached)
	return IsValid(expected, cached), nil
}

func (s *SavedTracks) ClearStorage(ctx context.Context) error {
	return s.storage.Clear(ctx, SavedTracksStore)
}

func (s *SavedTracks) LoadStorage(ctx context.Context, progress ProgressFunc) ([]models.SavedTrack, error) {
	return s.storage.Load(ctx, SavedTracksStore, progress)
}

func (s *SavedTracks) LoadRemote(ctx context.Context, progress ProgressFunc) ([]models.SavedTrack, error) {
	market, err := s.api.Market(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve market: %w", err)
	}

	fetch := func(ctx context.Context, offset, limit int) (*models.Page[models.SavedTrack], error) {
		return s.api.SavedTracks(ctx, offset, limit, market)
	}
	persist := func(ctx context.Context, items []models.SavedTrack) error {
		return s.storage.Save(ctx, SavedTracksStore, items)
	}
	return s.sync.Download(ctx, fetch, progress, persist)
}
