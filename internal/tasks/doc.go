// Package tasks runs the long-running library operations behind the CLI and TUI.
//
// # Core Operations
//
// [LibraryEngine] works over the tiered saved-track cache:
//
//  1. [LibraryEngine.Sync] : Loads the collection from the first valid tier
//     - Memory when the remote count still matches
//     - Durable storage when its count matches
//     - Otherwise clears storage and downloads page by page
//     - Records each completed run in the sync history
//
//  2. [LibraryEngine.Count] : Compares the remote total with the stored count
//
//  3. [LibraryEngine.Search] : Fuzzy matches a query against flattened tracks
//
//  4. [LibraryEngine.Export] : Writes the collection through the formatter package
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, a message and optional data.
// Updates use select with default so a slow reader never stalls a download.
package tasks
