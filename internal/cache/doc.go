// Package cache serves remote collections from the fastest valid tier.
//
// A [Provider] drives one orchestration algorithm over a [Source] describing the
// tiers of a collection: memory (the last completed retrieval), durable [Storage]
// and the remote API. Staleness is detected by count parity ([IsValid]); there is no
// content hash or change token upstream, so removing and adding the same number of
// items between checks goes unnoticed.
//
// The remote tier downloads page by page through a [Synchronizer], persisting each
// page before reporting progress.
package cache
