// Package repositories implements durable storage for cached collections.
//
// Key Implementations:
//   - [RecordStore] : SQLite-backed [cache.Storage] over the records table
//   - [BoltRecordStore] : bbolt-backed [cache.Storage] with one bucket per store
//   - [SyncRunRepository] : history of completed collection synchronizations
//
// Both record stores keep insertion order and deduplicate by record key, so a page
// persisted twice does not grow the store.
package repositories
