package repositories

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/spindle/internal/cache"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketRecords = []byte("records")
	bucketKeys    = []byte("keys")
)

// OpenBolt opens the bbolt database at path.
func OpenBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return db, nil
}

// BoltRecordStore implements [cache.Storage] on bbolt.
//
// Each store is a top-level bucket holding a records bucket (sequence → payload)
// and a keys bucket (record key → sequence).
type BoltRecordStore[T any] struct {
	db  *bolt.DB
	key KeyFunc[T]
}

// NewBoltRecordStore creates a [BoltRecordStore]. A nil key function gives every record a generated key.
func NewBoltRecordStore[T any](db *bolt.DB, key KeyFunc[T]) *BoltRecordStore[T] {
	return &BoltRecordStore[T]{db: db, key: key}
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// buckets returns the records and keys buckets of store, or nils when it does not exist.
func buckets(tx *bolt.Tx, store string) (records, keys *bolt.Bucket) {
	root := tx.Bucket([]byte(store))
	if root == nil {
		return nil, nil
	}
	return root.Bucket(bucketRecords), root.Bucket(bucketKeys)
}

func (s *BoltRecordStore[T]) Save(ctx context.Context, store string, items []T) error {
	if len(items) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(store))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", store, err)
		}
		records, err := root.CreateBucketIfNotExists(bucketRecords)
		if err != nil {
			return fmt.Errorf("failed to create records bucket: %w", err)
		}
		keys, err := root.CreateBucketIfNotExists(bucketKeys)
		if err != nil {
			return fmt.Errorf("failed to create keys bucket: %w", err)
		}

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}

			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}

			key := []byte(keyOf(s.key, item))
			seq := keys.Get(key)
			if seq == nil {
				next, err := records.NextSequence()
				if err != nil {
					return fmt.Errorf("failed to generate sequence: %w", err)
				}
				seq = itob(next)
				if err := keys.Put(key, seq); err != nil {
					return fmt.Errorf("failed to index record: %w", err)
				}
			}

			if err := records.Put(seq, payload); err != nil {
				return fmt.Errorf("failed to insert record: %w", err)
			}
		}
		return nil
	})
}

func (s *BoltRecordStore[T]) Load(ctx context.Context, store string, progress cache.ProgressFunc) ([]T, error) {
	return loadAll[T](ctx, s, store, progress)
}

func (s *BoltRecordStore[T]) Clear(ctx context.Context, store string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(store)) == nil {
			return nil
		}
		if err := tx.DeleteBucket([]byte(store)); err != nil {
			return fmt.Errorf("failed to clear store %s: %w", store, err)
		}
		return nil
	})
}

func (s *BoltRecordStore[T]) Count(ctx context.Context, store string) (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		records, _ := buckets(tx, store)
		if records == nil {
			return nil
		}
		count = records.Stats().KeyN
		return nil
	})
	return count, err
}

// Paginated reads count records starting at offset. The primary index walks sequence
// order; the key index walks record keys in byte order.
func (s *BoltRecordStore[T]) Paginated(ctx context.Context, store, index string, offset, count int) ([]T, error) {
	index, err := normalizeIndex(index)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, count)
	err = s.db.View(func(tx *bolt.Tx) error {
		records, keys := buckets(tx, store)
		if records == nil {
			return nil
		}

		walk := records
		if index == IndexKey {
			walk = keys
		}

		c := walk.Cursor()
		skipped := 0
		for k, v := c.First(); k != nil && len(items) < count; k, v = c.Next() {
			if skipped < offset {
				skipped++
				continue
			}

			payload := v
			if index == IndexKey {
				payload = records.Get(v)
			}

			var item T
			if err := json.Unmarshal(payload, &item); err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
