package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultPageSize  = 50
	DefaultPageDelay = 200 * time.Millisecond
)

// PageFetcher requests limit items starting at offset.
type PageFetcher[T any] func(ctx context.Context, offset, limit int) (*models.Page[T], error)

// PageHandler receives each downloaded page before progress is reported.
type PageHandler[T any] func(ctx context.Context, items []T) error

// Synchronizer downloads a paginated collection at a fixed page size, pacing requests.
type Synchronizer[T any] struct {
	pageSize int
	limiter  *rate.Limiter
}

// NewSynchronizer creates a [Synchronizer] issuing at most one page request per delay.
// A non-positive delay disables pacing; a non-positive page size selects [DefaultPageSize].
func NewSynchronizer[T any](pageSize int, delay time.Duration) *Synchronizer[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Synchronizer[T]{pageSize: pageSize, limiter: rate.NewLimiter(limit, 1)}
}

// PageSize returns the number of items requested per page.
func (s *Synchronizer[T]) PageSize() int {
	return s.pageSize
}

// Download fetches pages until one is empty, short or reports no next page.
//
// Failed pages are not retried; records already handed to onPage stay persisted.
func (s *Synchronizer[T]) Download(ctx context.Context, fetch PageFetcher[T], progress ProgressFunc, onPage PageHandler[T]) ([]T, error) {
	var items []T
	offset := 0

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return items, fmt.Errorf("%w: %w", shared.ErrSyncFailed, err)
		}

		page, err := fetch(ctx, offset, s.pageSize)
		if err != nil {
			return items, fmt.Errorf("%w: page at offset %d: %w", shared.ErrSyncFailed, offset, err)
		}
		if page == nil || len(page.Items) == 0 {
			return items, nil
		}

		if onPage != nil {
			if err := onPage(ctx, page.Items); err != nil {
				return items, fmt.Errorf("%w: persist page at offset %d: %w", shared.ErrSyncFailed, offset, err)
			}
		}

		items = append(items, page.Items...)
		offset += len(page.Items)
		progress.report(len(items), page.Total)

		if len(page.Items) < s.pageSize || !page.HasNext {
			return items, nil
		}
	}
}
