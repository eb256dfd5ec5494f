package cache

import "context"

// ProgressFunc receives the number of items handled so far and the known total.
type ProgressFunc func(done, total int)

func (f ProgressFunc) report(done, total int) {
	if f != nil {
		f(done, total)
	}
}

// Storage persists items in named record stores.
type Storage[T any] interface {
	// Save appends items to store, replacing records with the same key.
	Save(ctx context.Context, store string, items []T) error
	// Load reads every record of store in insertion order.
	Load(ctx context.Context, store string, progress ProgressFunc) ([]T, error)
	Clear(ctx context.Context, store string) error
	Count(ctx context.Context, store string) (int, error)
	// Paginated reads count records starting at offset, ordered by index.
	Paginated(ctx context.Context, store, index string, offset, count int) ([]T, error)
}
