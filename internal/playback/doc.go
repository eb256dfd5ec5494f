// Package playback reconciles playback state reported by a polled remote API with
// push notifications from a local playback engine.
//
// The [Store] owns the single authoritative [models.Snapshot] and the suppression window.
// Writers are the [Poller] (remote), the [LocalAdapter] (local engine events) and the
// [Dispatcher] (user commands). Readers subscribe to the store's [Broadcaster] for
// state, progress and locality notifications; the [ProgressClock] emits an extrapolated
// position between authoritative updates.
//
// Remote updates are discarded while the suppression window is armed so that a stale
// poll cannot overwrite state produced by a local action moments earlier.
package playback
