package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/spindle/internal/cache"
	"github.com/desertthunder/spindle/internal/shared"
)

// LoadPageSize is the number of records read per page by Load.
const LoadPageSize = 100

const (
	IndexPrimary = "primary"
	IndexKey     = "key"
)

// KeyFunc returns the deduplication key of a record.
type KeyFunc[T any] func(T) string

// keyOf applies fn, falling back to a generated key when fn is nil or yields "".
func keyOf[T any](fn KeyFunc[T], item T) string {
	if fn != nil {
		if key := fn(item); key != "" {
			return key
		}
	}
	return shared.GenerateID()
}

// normalizeIndex maps an index name to [IndexPrimary] or [IndexKey].
func normalizeIndex(index string) (string, error) {
	switch index {
	case "", IndexPrimary:
		return IndexPrimary, nil
	case IndexKey:
		return IndexKey, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownIndex, index)
	}
}

type pager[T any] interface {
	Count(ctx context.Context, store string) (int, error)
	Paginated(ctx context.Context, store, index string, offset, count int) ([]T, error)
}

// loadAll reads store in insertion order, [LoadPageSize] records at a time.
func loadAll[T any](ctx context.Context, p pager[T], store string, progress cache.ProgressFunc) ([]T, error) {
	total, err := p.Count(ctx, store)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, total)
	for len(items) < total {
		page, err := p.Paginated(ctx, store, IndexPrimary, len(items), LoadPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		items = append(items, page...)
		if progress != nil {
			progress(len(items), total)
		}
	}
	return items, nil
}
