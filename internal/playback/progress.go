package playback

import (
	"math"
	"time"

	"github.com/desertthunder/spindle/internal/models"
)

// Estimator extrapolates the playback position of a snapshot.
type Estimator struct {
	now func() time.Time
}

// NewEstimator creates an [Estimator] reading the clock from now, or [time.Now] when nil.
func NewEstimator(now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{now: now}
}

// Estimate returns the position of s in milliseconds.
//
// A paused snapshot reports its captured progress unchanged. A playing snapshot adds
// the wall time elapsed since capture and is clamped to [0, duration]. A position that
// no longer fits in 32 bits degrades to 0.
func (e *Estimator) Estimate(s *models.Snapshot) int {
	if s == nil {
		return 0
	}
	if !s.IsPlaying {
		return s.ProgressMS
	}

	elapsed := e.now().Sub(s.CapturedAt).Milliseconds()
	if elapsed > math.MaxInt32 || elapsed < math.MinInt32 {
		return 0
	}

	total := int64(s.ProgressMS) + elapsed
	if total > math.MaxInt32 || total < math.MinInt32 {
		return 0
	}

	return max(0, min(int(total), s.DurationMS()))
}
