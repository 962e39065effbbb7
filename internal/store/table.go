// AngelaMos | 2026
// table.go

package store

import (
	"context"
	"fmt"

	"github.com/zacanbrcom/auditorium-booking/internal/kv"
)

// AcquireFunc produces the partition handle backing a table.
type AcquireFunc func(ctx context.Context, db *DB, name string) (kv.Bucket, error)

// Table declares a named partition holding values of type V under keys
// of type K. A nil Acquire opens or creates the partition directly.
type Table[K, V any] struct {
	Name    string
	Acquire AcquireFunc
}

func DefaultAcquire(ctx context.Context, db *DB, name string) (kv.Bucket, error) {
	return db.Partition(ctx, name)
}

// VerifyDecodable checks that up to n existing entries decode as K and V
// before the partition is handed out.
func VerifyDecodable[K, V any](n int) AcquireFunc {
	return func(ctx context.Context, db *DB, name string) (kv.Bucket, error) {
		b, err := DefaultAcquire(ctx, db, name)
		if err != nil {
			return nil, err
		}

		entries, err := b.Scan(ctx, nil, n)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", name, err)
		}

		for _, e := range entries {
			var (
				k K
				v V
			)
			if err := db.codec.Unmarshal(e.Key, &k); err != nil {
				return nil, fmt.Errorf("%s key %x: %w: %w", name, e.Key, ErrCorrupt, err)
			}
			if err := db.codec.Unmarshal(e.Value, &v); err != nil {
				return nil, fmt.Errorf("%s value at %x: %w: %w", name, e.Key, ErrCorrupt, err)
			}
		}

		return b, nil
	}
}

// Open binds table to db. An error here leaves the table unusable and
// callers should treat it as fatal.
func Open[K, V any](ctx context.Context, db *DB, table Table[K, V]) (*Store[K, V], error) {
	acquire := table.Acquire
	if acquire == nil {
		acquire = DefaultAcquire
	}

	b, err := acquire(ctx, db, table.Name)
	if err != nil {
		return nil, fmt.Errorf("open table %q: %w", table.Name, err)
	}

	return &Store[K, V]{
		db:     db,
		bucket: b,
		logger: db.logger.With("partition", table.Name),
	}, nil
}
