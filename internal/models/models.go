package models

import (
	"fmt"
	"strings"
	"time"
)

// RepeatMode is the player's repeat setting.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatContext
	RepeatTrack
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatContext:
		return "context"
	case RepeatTrack:
		return "track"
	default:
		return "off"
	}
}

// ParseRepeatMode parses the names used by the remote API ("off", "context", "track").
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, nil
	case "context", "all":
		return RepeatContext, nil
	case "track", "one":
		return RepeatTrack, nil
	default:
		return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
	}
}

// Device is a playback target.
type Device struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	IsActive       bool   `json:"is_active"`
	VolumePercent  int    `json:"volume_percent"`
	SupportsVolume bool   `json:"supports_volume"`
}

// PlaybackContext identifies the playlist, album or artist playback was started from.
type PlaybackContext struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// Item is a playable track or episode.
type Item struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
}

// ArtistNames joins the item's artists for display.
func (i Item) ArtistNames() string {
	return strings.Join(i.Artists, ", ")
}

// Snapshot is the playback state observed at CapturedAt.
//
// ProgressMS is the position at capture time; consumers extrapolate from it.
type Snapshot struct {
	Device     Device           `json:"device"`
	IsPlaying  bool             `json:"is_playing"`
	ProgressMS int              `json:"progress_ms"`
	Shuffle    bool             `json:"shuffle"`
	Repeat     RepeatMode       `json:"repeat"`
	Context    *PlaybackContext `json:"context,omitempty"`
	Item       *Item            `json:"item,omitempty"`
	CapturedAt time.Time        `json:"captured_at"`
}

// DurationMS returns the current item's duration, or 0 without an item.
func (s *Snapshot) DurationMS() int {
	if s == nil || s.Item == nil {
		return 0
	}
	return s.Item.DurationMS
}

// Clone returns a deep copy so that callers may modify it without affecting the original.
func (s Snapshot) Clone() Snapshot {
	if s.Context != nil {
		ctx := *s.Context
		s.Context = &ctx
	}
	if s.Item != nil {
		item := *s.Item
		item.Artists = append([]string(nil), s.Item.Artists...)
		s.Item = &item
	}
	return s
}

// SavedTrack is a track in the user's library.
type SavedTrack struct {
	AddedAt time.Time `json:"added_at"`
	Track   Item      `json:"track"`
}

// Key identifies the saved track in durable storage.
func (t SavedTrack) Key() string {
	if t.Track.ID != "" {
		return t.Track.ID
	}
	return t.Track.URI
}

// Flatten converts the track into its display view.
func (t SavedTrack) Flatten() FlatSavedTrack {
	return FlatSavedTrack{
		ID:         t.Track.ID,
		URI:        t.Track.URI,
		Name:       t.Track.Name,
		Album:      t.Track.Album,
		Artists:    t.Track.ArtistNames(),
		DurationMS: t.Track.DurationMS,
		AddedAt:    t.AddedAt,
	}
}

// FlatSavedTrack is the single-row display form of a [SavedTrack].
type FlatSavedTrack struct {
	ID         string    `json:"id"`
	URI        string    `json:"uri"`
	Name       string    `json:"name"`
	Album      string    `json:"album"`
	Artists    string    `json:"artists"`
	DurationMS int       `json:"duration_ms"`
	AddedAt    time.Time `json:"added_at"`
}

// FlattenAll converts every saved track.
func FlattenAll(tracks []SavedTrack) []FlatSavedTrack {
	flat := make([]FlatSavedTrack, len(tracks))
	for i, t := range tracks {
		flat[i] = t.Flatten()
	}
	return flat
}

// Page is one page of a remote collection.
type Page[T any] struct {
	Items   []T
	Total   int
	Offset  int
	Limit   int
	HasNext bool
}

// Profile is the authenticated user's private profile.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}
