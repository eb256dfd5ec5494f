package services

import (
	"context"

	"github.com/desertthunder/spindle/internal/models"
)

// PlayerAPI defines the remote player operations.
type PlayerAPI interface {
	// PlaybackState returns the current remote state, or nil when nothing is playing anywhere.
	PlaybackState(ctx context.Context) (*models.Snapshot, error)
	Devices(ctx context.Context) ([]models.Device, error)
	TransferPlayback(ctx context.Context, deviceID string, play bool) error

	Play(ctx context.Context) error
	// PlayContext starts a context (album, playlist, artist), optionally at the track offsetURI.
	PlayContext(ctx context.Context, contextURI, offsetURI string) error
	PlayTracks(ctx context.Context, uris []string) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMS int) error
	SetShuffle(ctx context.Context, state bool) error
	SetRepeat(ctx context.Context, mode models.RepeatMode) error
	SetVolume(ctx context.Context, percent int) error
}

// LibraryAPI defines the saved-track and profile operations.
type LibraryAPI interface {
	SavedTracks(ctx context.Context, offset, limit int, market string) (*models.Page[models.SavedTrack], error)
	UserProfile(ctx context.Context) (*models.Profile, error)
	// Market returns the country code used to relink saved tracks.
	Market(ctx context.Context) (string, error)
}
