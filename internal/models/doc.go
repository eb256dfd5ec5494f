// Package models defines the domain entities shared by playback reconciliation and the library cache.
//
// The package contains two categories of types:
//
// 1. Playback state: the externally observed state of the user's player
//   - [Snapshot] : device, item, context, progress and modes captured at a point in time
//   - [Device] : a playback target known to the remote service
//   - [RepeatMode] : off, context or track
//
// 2. Library entities: the user's saved-track collection and its paging envelope
//   - [SavedTrack] : a track and the time it was saved
//   - [FlatSavedTrack] : display view used by search and export
//   - [Page] : one page of a remote collection with its reported total
//   - [Profile] : the private user profile that supplies the market
package models
