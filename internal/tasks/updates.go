package tasks

import (
	"fmt"

	"github.com/desertthunder/spindle/internal/cache"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadLibrary Phase = iota
	SearchLibrary
	ExportLibrary
)

func (p Phase) String() string {
	switch p {
	case LoadLibrary:
		return "load_library"
	case SearchLibrary:
		return "search_library"
	case ExportLibrary:
		return "export_library"
	default:
		return ""
	}
}

func loadingUpdate(done, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadLibrary,
		Step:    done,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Loading saved tracks...", done, total),
	}
}

func loadedUpdate(count int, tier cache.Tier) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadLibrary,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Loaded %d saved tracks from %s", count, tier),
		Data:    tier,
	}
}

func searchUpdate(query string, matches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d matches for %q", matches, query),
	}
}

func exportUpdate(path string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Exported %d tracks to %s", count, path),
		Data:    path,
	}
}
