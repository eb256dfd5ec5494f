package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

// SpotifyDevice represents a device returned by the player endpoints.
type SpotifyDevice struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	IsActive         bool   `json:"is_active"`
	VolumePercent    *int   `json:"volume_percent"`
	SupportsVolume   bool   `json:"supports_volume"`
	IsRestricted     bool   `json:"is_restricted"`
	IsPrivateSession bool   `json:"is_private_session"`
}

// SpotifyContext represents the context playback was started from.
type SpotifyContext struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// SpotifyPlaybackState represents the response of GET /me/player.
type SpotifyPlaybackState struct {
	Device       SpotifyDevice   `json:"device"`
	RepeatState  string          `json:"repeat_state"`
	ShuffleState bool            `json:"shuffle_state"`
	Context      *SpotifyContext `json:"context"`
	Timestamp    int64           `json:"timestamp"`
	ProgressMS   *int            `json:"progress_ms"`
	IsPlaying    bool            `json:"is_playing"`
	Item         *SpotifyTrack   `json:"item"`
}

type transferRequest struct {
	DeviceIDs []string `json:"device_ids"`
	Play      bool     `json:"play"`
}

type playOffset struct {
	URI string `json:"uri,omitempty"`
}

type playRequest struct {
	ContextURI string      `json:"context_uri,omitempty"`
	URIs       []string    `json:"uris,omitempty"`
	Offset     *playOffset `json:"offset,omitempty"`
}

// PlaybackState retrieves the current playback state, returning nil when no device is playing.
func (s *SpotifyService) PlaybackState(ctx context.Context) (*models.Snapshot, error) {
	query := url.Values{}
	query.Set("additional_types", "track,episode")

	var state *SpotifyPlaybackState
	if err := s.doRequest(ctx, http.MethodGet, "/me/player", query, nil, &state); err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return convertPlaybackState(state), nil
}

func convertPlaybackState(state *SpotifyPlaybackState) *models.Snapshot {
	repeat, _ := models.ParseRepeatMode(state.RepeatState)
	snapshot := &models.Snapshot{
		Device:    convertDevice(state.Device),
		IsPlaying: state.IsPlaying,
		Shuffle:   state.ShuffleState,
		Repeat:    repeat,
	}
	if state.ProgressMS != nil {
		snapshot.ProgressMS = *state.ProgressMS
	}
	if state.Context != nil {
		snapshot.Context = &models.PlaybackContext{Type: state.Context.Type, URI: state.Context.URI}
	}
	if state.Item != nil {
		item := convertTrack(*state.Item)
		snapshot.Item = &item
	}
	return snapshot
}

func convertDevice(d SpotifyDevice) models.Device {
	device := models.Device{
		ID:             d.ID,
		Name:           d.Name,
		Type:           d.Type,
		IsActive:       d.IsActive,
		SupportsVolume: d.SupportsVolume,
	}
	if d.VolumePercent != nil {
		device.VolumePercent = *d.VolumePercent
	}
	return device
}

// Devices lists the user's available playback devices.
func (s *SpotifyService) Devices(ctx context.Context) ([]models.Device, error) {
	var response struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, nil, &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, len(response.Devices))
	for i, d := range response.Devices {
		devices[i] = convertDevice(d)
	}
	return devices, nil
}

// TransferPlayback moves playback to deviceID, starting it when play is true.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id", shared.ErrMissingArgument)
	}
	body := transferRequest{DeviceIDs: []string{deviceID}, Play: play}
	return s.doRequest(ctx, http.MethodPut, "/me/player", nil, body, nil)
}

// Play resumes playback on the active device.
func (s *SpotifyService) Play(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", nil, nil, nil)
}

// PlayContext starts playback of contextURI, at offsetURI when given.
func (s *SpotifyService) PlayContext(ctx context.Context, contextURI, offsetURI string) error {
	if contextURI == "" {
		return fmt.Errorf("%w: context uri", shared.ErrMissingArgument)
	}
	body := playRequest{ContextURI: contextURI}
	if offsetURI != "" {
		body.Offset = &playOffset{URI: offsetURI}
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", nil, body, nil)
}

// PlayTracks starts playback of an explicit list of track URIs.
func (s *SpotifyService) PlayTracks(ctx context.Context, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: track uris", shared.ErrMissingArgument)
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", nil, playRequest{URIs: uris}, nil)
}

func (s *SpotifyService) Pause(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/pause", nil, nil, nil)
}

func (s *SpotifyService) Next(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/next", nil, nil, nil)
}

func (s *SpotifyService) Previous(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/previous", nil, nil, nil)
}

// Seek moves the playhead to positionMS.
func (s *SpotifyService) Seek(ctx context.Context, positionMS int) error {
	if positionMS < 0 {
		return fmt.Errorf("%w: position must not be negative", shared.ErrInvalidArgument)
	}
	query := url.Values{}
	query.Set("position_ms", fmt.Sprint(positionMS))
	return s.doRequest(ctx, http.MethodPut, "/me/player/seek", query, nil, nil)
}

func (s *SpotifyService) SetShuffle(ctx context.Context, state bool) error {
	query := url.Values{}
	query.Set("state", fmt.Sprint(state))
	return s.doRequest(ctx, http.MethodPut, "/me/player/shuffle", query, nil, nil)
}

func (s *SpotifyService) SetRepeat(ctx context.Context, mode models.RepeatMode) error {
	query := url.Values{}
	query.Set("state", mode.String())
	return s.doRequest(ctx, http.MethodPut, "/me/player/repeat", query, nil, nil)
}

// SetVolume sets the active device's volume in percent (0-100).
func (s *SpotifyService) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume %d out of range 0-100", shared.ErrInvalidArgument, percent)
	}
	query := url.Values{}
	query.Set("volume_percent", fmt.Sprint(percent))
	return s.doRequest(ctx, http.MethodPut, "/me/player/volume", query, nil, nil)
}
