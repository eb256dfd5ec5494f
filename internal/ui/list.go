package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.FlatSavedTrack] to implement [list.Item].
type trackItem struct {
	track models.FlatSavedTrack
}

func (i trackItem) FilterValue() string { return i.track.Name + " " + i.track.Artists }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.track.Artists, shared.FormatDuration(i.track.DurationMS))
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}

func trackItems(tracks []models.SavedTrack) []list.Item {
	flat := models.FlattenAll(tracks)
	items := make([]list.Item, len(flat))
	for i, t := range flat {
		items[i] = trackItem{track: t}
	}
	return items
}
