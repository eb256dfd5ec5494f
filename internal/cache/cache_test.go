package cache

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

// memStorage is an in-memory [Storage] keyed by store name.
type memStorage[T any] struct {
	mu      sync.Mutex
	records map[string][]T
	saves   int
	clears  int
}

func newMemStorage[T any]() *memStorage[T] {
	return &memStorage[T]{records: make(map[string][]T)}
}

func (m *memStorage[T]) Save(ctx context.Context, store string, items []T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.records[store] = append(m.records[store], items...)
	return nil
}

func (m *memStorage[T]) Load(ctx context.Context, store string, progress ProgressFunc) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]T(nil), m.records[store]...)
	progress.report(len(items), len(items))
	return items, nil
}

func (m *memStorage[T]) Clear(ctx context.Context, store string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	delete(m.records, store)
	return nil
}

func (m *memStorage[T]) Count(ctx context.Context, store string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[store]), nil
}

func (m *memStorage[T]) Paginated(ctx context.Context, store, index string, offset, count int) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.records[store]
	start := min(offset, len(items))
	end := min(offset+count, len(items))
	return append([]T(nil), items[start:end]...), nil
}
